// internal/workers/conversation/merge-slots/config.go
package mergeslots

type Config struct {
	ProjectSuggestLimit int
	AreaListLimit       int
	CorrectionListLimit int
}

func LoadConfig() *Config {
	return &Config{
		ProjectSuggestLimit: 5,
		AreaListLimit:       10,
		CorrectionListLimit: 5,
	}
}
