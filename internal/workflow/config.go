package workflow

import "time"

type Config struct {
	HistoryLimit     int
	ContextTurns     int
	GreetingAreas    int
	SessionTimeout   time.Duration
	LeadTimeout      time.Duration
	CatalogTimeout   time.Duration
	TurnLogTimeout   time.Duration
	LockTimeout      time.Duration
	RetryConcurrency int
}

func LoadConfig() *Config {
	return &Config{
		HistoryLimit:     10,
		ContextTurns:     4,
		GreetingAreas:    10,
		SessionTimeout:   2 * time.Second,
		LeadTimeout:      10 * time.Second,
		CatalogTimeout:   5 * time.Second,
		TurnLogTimeout:   2 * time.Second,
		LockTimeout:      30 * time.Second,
		RetryConcurrency: 4,
	}
}
