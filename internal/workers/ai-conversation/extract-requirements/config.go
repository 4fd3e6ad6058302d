// internal/workers/ai-conversation/extract-requirements/config.go
package extractrequirements

import "time"

type Config struct {
	Timeout      time.Duration
	MaxTokens    int
	ContextTurns int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      15 * time.Second,
		MaxTokens:    512,
		ContextTurns: 4,
	}
}
