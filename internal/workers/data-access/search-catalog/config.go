// internal/workers/data-access/search-catalog/config.go
package searchcatalog

import "time"

type Config struct {
	Timeout          time.Duration
	DefaultTopK      int
	DefaultThreshold float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          5 * time.Second,
		DefaultTopK:      5,
		DefaultThreshold: 0.7,
	}
}
