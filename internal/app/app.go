// Package app wires the dialogue engine and its adapters from configuration.
// Both the server and the tools binary build on it.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	openai "github.com/sashabaranov/go-openai"

	"leadbot/internal/common/aws"
	"leadbot/internal/common/camunda"
	"leadbot/internal/common/config"
	"leadbot/internal/common/database"
	"leadbot/internal/common/llm"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/observability"
	"leadbot/internal/common/zoho"
	"leadbot/internal/session"
	"leadbot/internal/transport/httpapi"
	classifyintent "leadbot/internal/workers/ai-conversation/classify-intent"
	extractrequirements "leadbot/internal/workers/ai-conversation/extract-requirements"
	transliteratename "leadbot/internal/workers/ai-conversation/transliterate-name"
	createleadrecord "leadbot/internal/workers/application/create-lead-record"
	sendnotification "leadbot/internal/workers/application/send-notification"
	confirmrequirements "leadbot/internal/workers/conversation/confirm-requirements"
	handleinquiry "leadbot/internal/workers/conversation/handle-inquiry"
	mergeslots "leadbot/internal/workers/conversation/merge-slots"
	refineintent "leadbot/internal/workers/conversation/refine-intent"
	resolveentity "leadbot/internal/workers/conversation/resolve-entity"
	syncleadcrm "leadbot/internal/workers/crm/sync-lead-crm"
	querycatalog "leadbot/internal/workers/data-access/query-catalog"
	searchcatalog "leadbot/internal/workers/data-access/search-catalog"
	"leadbot/internal/workflow"
	"leadbot/pkg/registry"
)

// App holds every long-lived client. Elastic, Chromem, Search and Zeebe are
// nil when their backend is switched off.
type App struct {
	Config *config.Config
	Log    logger.Logger
	Obs    *observability.Observability

	Postgres *database.PostgresClient
	Redis    *database.RedisClient
	Elastic  *database.ElasticsearchClient
	Zeebe    *camunda.Client

	Catalog  *querycatalog.Handler
	Search   *searchcatalog.Handler
	Chromem  *searchcatalog.ChromemBackend
	Leads    *createleadrecord.Handler
	Sessions *session.RedisStore
	Engine   *workflow.Engine
}

// New connects to every backing service, with retries, and builds the
// engine. Callers must Close the result.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	var opts []observability.Option
	if cfg.Tracing.JaegerEndpoint != "" {
		exp, err := observability.NewJaegerExporter(cfg.Tracing.JaegerEndpoint)
		if err != nil {
			return nil, err
		}
		opts = append(opts, observability.WithSpanExporter(exp))
	}
	opts = append(opts, observability.WithSampleRatio(cfg.Tracing.SampleRatio))
	a.Obs = observability.New(cfg.App.Name, opts...)

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	err := retryWithBackoff(ctx, func() error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		a.Postgres = pg
		return nil
	}, 15, 2*time.Second, a.Log, "PostgreSQL connection")
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, a.Postgres.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.Log.Info("PostgreSQL connected", nil)

	err = retryWithBackoff(ctx, func() error {
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return err
		}
		a.Redis = rc
		return nil
	}, 10, 2*time.Second, a.Log, "Redis connection")
	if err != nil {
		return err
	}
	a.Log.Info("Redis connected", nil)

	if cfg.Semantic.Backend == "elasticsearch" {
		err = retryWithBackoff(ctx, func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			a.Elastic = es
			return nil
		}, 15, 2*time.Second, a.Log, "Elasticsearch connection")
		if err != nil {
			return err
		}
		a.Log.Info("Elasticsearch connected", nil)
	}

	if cfg.Camunda.Enabled {
		err = retryWithBackoff(ctx, func() error {
			zc, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			if err != nil {
				return err
			}
			a.Zeebe = zc
			return nil
		}, 10, 2*time.Second, a.Log, "Zeebe client initialization")
		if err != nil {
			return err
		}
		a.Log.Info("Zeebe client connected", nil)
	}
	return nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	d := cfg.Dialogue
	rdb := a.Redis.Client

	provider, err := llm.New(llm.Options{
		Provider:      cfg.LLM.Provider,
		GenAIBaseURL:  cfg.APIs.GenAI.BaseURL,
		GenAIAPIKey:   cfg.APIs.GenAI.APIKey,
		OpenAIAPIKey:  cfg.APIs.OpenAI.APIKey,
		OpenAIBaseURL: cfg.APIs.OpenAI.BaseURL,
		OpenAIModel:   cfg.APIs.OpenAI.Model,
		MaxRetries:    cfg.LLM.MaxRetries,
	})
	if err != nil {
		return err
	}

	tables := registry.Default()
	if d.TokenTablesPath != "" {
		if tables, err = registry.LoadTokenTables(d.TokenTablesPath); err != nil {
			return fmt.Errorf("token tables: %w", err)
		}
	}

	catalogCfg := querycatalog.LoadConfig()
	catalogCfg.Timeout = config.GetDuration(d.Timeouts.Catalog)
	catalogCfg.CacheTTL = time.Duration(d.CatalogCacheTTL) * time.Second
	a.Catalog = querycatalog.NewHandler(catalogCfg, a.Postgres.DB, rdb, a.Log)

	if err := a.buildSearch(ctx); err != nil {
		return err
	}

	translitCfg := transliteratename.LoadConfig()
	translitCfg.Timeout = config.GetDuration(d.Timeouts.Transliteration)
	translit := transliteratename.NewHandler(translitCfg, provider, rdb, a.Log)

	resolverCfg := resolveentity.LoadConfig()
	resolverCfg.ExactThreshold = d.ExactThreshold
	resolverCfg.SuggestThreshold = d.SuggestThreshold
	resolverCfg.SemanticTopK = cfg.Semantic.TopK
	resolverCfg.SemanticThreshold = cfg.Semantic.Threshold
	resolverCfg.TransliterationTimeout = config.GetDuration(d.Timeouts.Transliteration)
	resolverCfg.SearchTimeout = config.GetDuration(d.Timeouts.Search)
	var searcher resolveentity.SemanticSearcher
	if a.Search != nil {
		searcher = a.Search
	}
	resolver := resolveentity.NewHandler(resolverCfg, a.Catalog, translit, searcher, a.Log)

	classifyCfg := classifyintent.LoadConfig()
	classifyCfg.Timeout = config.GetDuration(d.Timeouts.Classifier)
	extractCfg := extractrequirements.LoadConfig()
	extractCfg.Timeout = config.GetDuration(d.Timeouts.Extractor)

	refineCfg := refineintent.LoadConfig()
	refineCfg.Tables = tables
	inquiryCfg := handleinquiry.LoadConfig()
	inquiryCfg.Tables = tables
	inquiryCfg.CatalogTimeout = config.GetDuration(d.Timeouts.Catalog)

	leadCfg := createleadrecord.LoadConfig()
	leadCfg.Timeout = config.GetDuration(d.Timeouts.LeadSink)
	var starter createleadrecord.ProcessStarter
	if a.Zeebe != nil && cfg.LeadFollowUp.Enabled {
		leadCfg.FollowUpProcessID = cfg.LeadFollowUp.ProcessID
		starter = a.Zeebe
	}
	a.Leads = createleadrecord.NewHandler(leadCfg, a.Postgres.DB, starter, a.Log)

	a.Sessions = session.NewRedisStore(rdb, session.StoreOptions{
		TTL: time.Duration(d.SessionTTL) * time.Second,
	})

	engineCfg := workflow.LoadConfig()
	engineCfg.HistoryLimit = d.HistoryLimit
	engineCfg.SessionTimeout = config.GetDuration(d.Timeouts.Session)
	engineCfg.LeadTimeout = config.GetDuration(d.Timeouts.LeadSink)
	engineCfg.CatalogTimeout = config.GetDuration(d.Timeouts.Catalog)
	engineCfg.LockTimeout = config.GetDuration(d.Timeouts.KeyLock)

	a.Engine, err = workflow.NewEngine(engineCfg, workflow.Deps{
		Store:      a.Sessions,
		Pending:    a.Sessions,
		Turns:      session.NewTurnLog(a.Postgres.DB),
		Classifier: classifyintent.NewHandler(classifyCfg, provider, a.Log),
		Extractor:  extractrequirements.NewHandler(extractCfg, provider, a.Log),
		Areas:      a.Catalog,
		Leads:      a.Leads,
		Refiner:    refineintent.NewHandler(refineCfg, a.Log),
		Slots:      mergeslots.NewHandler(mergeslots.LoadConfig(), resolver, a.Catalog, a.Log),
		Confirm:    confirmrequirements.NewHandler(confirmrequirements.LoadConfig(), a.Catalog, a.Log),
		Inquiry:    handleinquiry.NewHandler(inquiryCfg, a.Catalog, a.Log),
		Obs:        a.Obs,
	}, a.Log)
	return err
}

func (a *App) buildSearch(ctx context.Context) error {
	cfg := a.Config
	searchCfg := searchcatalog.LoadConfig()
	searchCfg.Timeout = config.GetDuration(cfg.Dialogue.Timeouts.Search)
	searchCfg.DefaultTopK = cfg.Semantic.TopK
	searchCfg.DefaultThreshold = cfg.Semantic.Threshold

	switch cfg.Semantic.Backend {
	case "elasticsearch":
		backend := searchcatalog.NewElasticsearchBackend(a.Elastic.Client, cfg.Semantic.Index)
		if err := a.Elastic.EnsureIndex(ctx, cfg.Semantic.Index, backend.Mapping()); err != nil {
			return err
		}
		a.Search = searchcatalog.NewHandler(searchCfg, backend, a.Log)

	case "chromem":
		oc := openai.DefaultConfig(cfg.APIs.OpenAI.APIKey)
		if cfg.APIs.OpenAI.BaseURL != "" {
			oc.BaseURL = cfg.APIs.OpenAI.BaseURL
		}
		embed := searchcatalog.NewOpenAIEmbeddingFunc(openai.NewClientWithConfig(oc), cfg.Semantic.EmbeddingModel)
		backend, err := searchcatalog.NewChromemBackend(embed)
		if err != nil {
			return err
		}
		if p := cfg.Semantic.PersistPath; p != "" {
			if _, statErr := os.Stat(p); statErr == nil {
				if err := backend.Load(p); err != nil {
					return err
				}
			}
		}
		a.Chromem = backend
		a.Search = searchcatalog.NewHandler(searchCfg, backend, a.Log)
	}
	return nil
}

// IndexCatalog pushes the catalog to the semantic backend and persists the
// chromem store when a path is configured.
func (a *App) IndexCatalog(ctx context.Context) (int, error) {
	if a.Search == nil {
		return 0, fmt.Errorf("semantic search is disabled")
	}
	n, err := a.Search.IndexCatalog(ctx, a.Catalog)
	if err != nil {
		return 0, err
	}
	if a.Chromem != nil && a.Config.Semantic.PersistPath != "" {
		if err := a.Chromem.Persist(a.Config.Semantic.PersistPath); err != nil {
			return n, fmt.Errorf("persist chromem store: %w", err)
		}
	}
	return n, nil
}

// StartWorkers opens the lead follow-up job workers. It returns nothing when
// Zeebe is disabled.
func (a *App) StartWorkers(ctx context.Context) ([]worker.JobWorker, error) {
	if a.Zeebe == nil {
		return nil, nil
	}
	cfg := a.Config
	zc := a.Zeebe.GetClient()
	var workers []worker.JobWorker
	start := func(taskType string, h camunda.JobHandler) {
		if jw := camunda.StartWorker(zc, taskType, config.GetWorkerConfig(cfg, taskType), h, a.Log); jw != nil {
			workers = append(workers, jw)
		}
	}

	start(createleadrecord.TaskType, a.Leads)

	crmCfg := syncleadcrm.DefaultConfig()
	crmCfg.Enabled = config.IsWorkerEnabled(cfg, syncleadcrm.TaskType)
	crmCfg.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, syncleadcrm.TaskType).Timeout)
	var crm syncleadcrm.LeadUpserter
	if token := cfg.Integrations.Zoho.AuthToken; token != "" {
		crm = zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, token, crmCfg.Timeout)
	}
	crmHandler, err := syncleadcrm.NewHandler(crmCfg, crm, a.Log)
	if err != nil {
		return workers, err
	}
	start(syncleadcrm.TaskType, crmHandler)

	notifyCfg := sendnotification.LoadConfig()
	var (
		email sendnotification.EmailSender
		sms   sendnotification.SMSSender
	)
	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		ac, err := aws.LoadConfig(ctx, awsCfg.Region)
		if err != nil {
			return workers, err
		}
		if awsCfg.SES.Enabled {
			email = aws.NewSESClient(ac, awsCfg.SES.FromEmail)
			notifyCfg.EmailEnabled = true
			notifyCfg.SalesEmails = []string{awsCfg.SES.SalesTo}
			if cfg.LeadFollowUp.SalesEmail != "" {
				notifyCfg.SalesEmails = []string{cfg.LeadFollowUp.SalesEmail}
			}
		}
		if awsCfg.SNS.Enabled {
			sms = aws.NewSNSClient(ac)
			notifyCfg.SMSEnabled = true
			notifyCfg.SalesPhone = awsCfg.SNS.SalesPhone
		}
	}
	start(sendnotification.TaskType, sendnotification.NewHandler(notifyCfg, email, sms, a.Log))

	return workers, nil
}

// Checks are the readiness checks for the stores the engine needs.
func (a *App) Checks() map[string]httpapi.Check {
	checks := map[string]httpapi.Check{
		"postgres": a.Postgres.Ping,
		"redis":    a.Redis.Ping,
	}
	if a.Elastic != nil {
		checks["elasticsearch"] = a.Elastic.Ping
	}
	if a.Zeebe != nil {
		checks["zeebe"] = a.Zeebe.HealthCheck
	}
	return checks
}

// Close releases every client that was opened.
func (a *App) Close() {
	if a.Zeebe != nil {
		if err := a.Zeebe.Close(); err != nil {
			a.Log.Warn("error closing Zeebe client", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Postgres != nil {
		_ = a.Postgres.Close()
	}
	a.Obs.Shutdown()
}

// retryWithBackoff attempts an operation with exponential backoff.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}
		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
