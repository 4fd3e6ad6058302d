// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Server       ServerConfig            `mapstructure:"server"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Dialogue     DialogueConfig          `mapstructure:"dialogue"`
	Semantic     SemanticConfig          `mapstructure:"semantic"`
	LLM          LLMConfig               `mapstructure:"llm"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	APIs         APIsConfig              `mapstructure:"apis"`
	LeadFollowUp LeadFollowUpConfig      `mapstructure:"lead_followup"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Tracing      TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	RequestTimeout  int `mapstructure:"request_timeout"`  // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DialogueConfig tunes the conversation engine.
type DialogueConfig struct {
	ExactThreshold   float64          `mapstructure:"exact_threshold"`
	SuggestThreshold float64          `mapstructure:"suggest_threshold"`
	HistoryLimit     int              `mapstructure:"history_limit"`
	SessionTTL       int              `mapstructure:"session_ttl"`       // seconds, 0 keeps sessions forever
	CatalogCacheTTL  int              `mapstructure:"catalog_cache_ttl"` // seconds
	TokenTablesPath  string           `mapstructure:"token_tables_path"`
	LeadRetryEvery   int              `mapstructure:"lead_retry_every"` // milliseconds
	Timeouts         DialogueTimeouts `mapstructure:"timeouts"`
}

// DialogueTimeouts holds the per-call budgets, in milliseconds.
type DialogueTimeouts struct {
	Classifier      int `mapstructure:"classifier"`
	Extractor       int `mapstructure:"extractor"`
	Catalog         int `mapstructure:"catalog"`
	Transliteration int `mapstructure:"transliteration"`
	Search          int `mapstructure:"search"`
	LeadSink        int `mapstructure:"lead_sink"`
	Session         int `mapstructure:"session"`
	KeyLock         int `mapstructure:"key_lock"`
}

// SemanticConfig selects the semantic search backend.
type SemanticConfig struct {
	Backend        string  `mapstructure:"backend"` // elasticsearch | chromem | none
	Index          string  `mapstructure:"index"`
	TopK           int     `mapstructure:"top_k"`
	Threshold      float64 `mapstructure:"threshold"`
	PersistPath    string  `mapstructure:"persist_path"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
}

// LLMConfig selects which provider backs the classifier, extractor and
// transliteration adapters.
type LLMConfig struct {
	Provider   string `mapstructure:"provider"` // genai | openai
	MaxRetries int    `mapstructure:"max_retries"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// IntegrationConfig holds settings for CRM and notification services.
type IntegrationConfig struct {
	Zoho struct {
		BaseURL   string `mapstructure:"base_url"`
		AuthToken string `mapstructure:"oauth_token"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
			SalesTo   string `mapstructure:"sales_to"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled    bool   `mapstructure:"enabled"`
			SalesPhone string `mapstructure:"sales_phone"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"genai"`

	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
		Model   string `mapstructure:"model"`
	} `mapstructure:"openai"`
}

// LeadFollowUpConfig controls the BPMN process started for every new lead.
type LeadFollowUpConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ProcessID  string `mapstructure:"process_id"`
	SalesEmail string `mapstructure:"sales_email"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
