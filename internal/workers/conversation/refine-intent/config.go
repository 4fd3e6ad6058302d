// internal/workers/conversation/refine-intent/config.go
package refineintent

import "leadbot/pkg/registry"

type Config struct {
	Tables                 *registry.TokenTables
	ShortConfirmMaxWords   int
	DataMinNonConfirmWords int
	CorrectionMaxWords     int
}

func LoadConfig() *Config {
	return &Config{
		Tables:                 registry.Default(),
		ShortConfirmMaxWords:   5,
		DataMinNonConfirmWords: 3,
		CorrectionMaxWords:     3,
	}
}
