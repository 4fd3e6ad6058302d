// internal/workers/ai-conversation/classify-intent/config.go
package classifyintent

import "time"

type Config struct {
	Timeout        time.Duration
	MaxTokens      int
	HistoryContext int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        10 * time.Second,
		MaxTokens:      10,
		HistoryContext: 3,
	}
}
