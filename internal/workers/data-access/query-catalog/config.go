// internal/workers/data-access/query-catalog/config.go
package querycatalog

import "time"

type Config struct {
	Timeout   time.Duration
	CacheTTL  time.Duration
	KeyPrefix string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   5 * time.Second,
		CacheTTL:  5 * time.Minute,
		KeyPrefix: "catalog:",
	}
}
