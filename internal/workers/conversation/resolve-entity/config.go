// internal/workers/conversation/resolve-entity/config.go
package resolveentity

import "time"

type Config struct {
	ExactThreshold         float64
	SuggestThreshold       float64
	PhoneticMaxRunes       int
	SuggestCount           int
	FallbackCount          int
	SemanticTopK           int
	SemanticThreshold      float64
	TransliterationTimeout time.Duration
	SearchTimeout          time.Duration
}

func LoadConfig() *Config {
	return &Config{
		ExactThreshold:         0.85,
		SuggestThreshold:       0.60,
		PhoneticMaxRunes:       10,
		SuggestCount:           5,
		FallbackCount:          10,
		SemanticTopK:           5,
		SemanticThreshold:      0.5,
		TransliterationTimeout: 5 * time.Second,
		SearchTimeout:          3 * time.Second,
	}
}
