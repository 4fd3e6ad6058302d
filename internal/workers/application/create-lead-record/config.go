// internal/workers/application/create-lead-record/config.go
package createleadrecord

import "time"

type Config struct {
	Timeout           time.Duration
	FollowUpProcessID string
	FollowUpTimeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:           10 * time.Second,
		FollowUpProcessID: "lead-follow-up",
		FollowUpTimeout:   3 * time.Second,
	}
}
