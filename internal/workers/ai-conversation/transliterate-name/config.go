// internal/workers/ai-conversation/transliterate-name/config.go
package transliteratename

import "time"

type Config struct {
	Timeout   time.Duration
	CacheTTL  time.Duration
	KeyPrefix string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   5 * time.Second,
		CacheTTL:  7 * 24 * time.Hour,
		KeyPrefix: "translit:",
	}
}
