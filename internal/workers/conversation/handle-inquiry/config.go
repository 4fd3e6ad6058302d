// internal/workers/conversation/handle-inquiry/config.go
package handleinquiry

import (
	"time"

	"leadbot/pkg/registry"
)

type Config struct {
	Tables         *registry.TokenTables
	ListLimit      int
	CatalogTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Tables:         registry.Default(),
		ListLimit:      10,
		CatalogTimeout: 3 * time.Second,
	}
}
