package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  postgres:
    host: localhost
    database: leadbot
    user: leadbot
  redis:
    address: localhost:6379
  elasticsearch:
    addresses: ["http://localhost:9200"]
apis:
  genai:
    base_url: http://genai.local
dialogue:
  suggest_threshold: 0.55
  timeouts:
    classifier: 1200
workers:
  sync-lead-crm:
    enabled: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.85, cfg.Dialogue.ExactThreshold)
	assert.Equal(t, 0.55, cfg.Dialogue.SuggestThreshold)
	assert.Equal(t, 10, cfg.Dialogue.HistoryLimit)
	assert.Equal(t, 1200, cfg.Dialogue.Timeouts.Classifier)
	assert.Equal(t, 20000, cfg.Dialogue.Timeouts.Extractor)
	assert.Equal(t, "elasticsearch", cfg.Semantic.Backend)
	assert.Equal(t, "catalog_entities", cfg.Semantic.Index)
	assert.Equal(t, "genai", cfg.LLM.Provider)
	assert.Equal(t, "lead-follow-up", cfg.LeadFollowUp.ProcessID)
	assert.Equal(t, "http://localhost:9200", cfg.Database.Elasticsearch.URL)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)

	w := cfg.Workers["sync-lead-crm"]
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("LEADBOT_TEST_PG_HOST", "db.internal")
	body := `
database:
  postgres:
    host: ${LEADBOT_TEST_PG_HOST}
    database: leadbot
    user: leadbot
  redis:
    address: localhost:6379
semantic:
  backend: none
apis:
  genai:
    base_url: http://genai.local
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Database.Postgres = PostgresConfig{Host: "h", Database: "d", User: "u"}
		cfg.Database.Redis.Address = "r:6379"
		cfg.Semantic.Backend = "none"
		cfg.LLM.Provider = "genai"
		cfg.APIs.GenAI.BaseURL = "http://genai"
		cfg.Dialogue.ExactThreshold = 0.85
		cfg.Dialogue.SuggestThreshold = 0.6
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing redis", func(c *Config) { c.Database.Redis.Address = "" }, "database.redis.address"},
		{"es backend without url", func(c *Config) { c.Semantic.Backend = "elasticsearch" }, "elasticsearch"},
		{"chromem without openai key", func(c *Config) { c.Semantic.Backend = "chromem" }, "apis.openai.api_key"},
		{"unknown backend", func(c *Config) { c.Semantic.Backend = "faiss" }, "not supported"},
		{"openai without key", func(c *Config) { c.LLM.Provider = "openai" }, "apis.openai.api_key"},
		{"inverted thresholds", func(c *Config) { c.Dialogue.SuggestThreshold = 0.9 }, "suggest_threshold"},
		{"camunda without broker", func(c *Config) { c.Camunda.Enabled = true }, "broker_address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{}
	w := GetWorkerConfig(cfg, "send-notification")
	assert.True(t, w.Enabled)
	assert.Equal(t, 30000, w.Timeout)
	assert.True(t, IsWorkerEnabled(cfg, "send-notification"))
}
