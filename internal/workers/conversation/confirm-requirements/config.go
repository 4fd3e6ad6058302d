// internal/workers/conversation/confirm-requirements/config.go
package confirmrequirements

import "time"

type Config struct {
	CountTimeout time.Duration
	// MaxTemplate is the index of the tersest summary wording.
	MaxTemplate int
}

func LoadConfig() *Config {
	return &Config{
		CountTimeout: 3 * time.Second,
		MaxTemplate:  2,
	}
}
