// cmd/leadbot/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"leadbot/internal/app"
	"leadbot/internal/common/config"
	"leadbot/internal/common/logger"
	"leadbot/internal/transport/httpapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})
	log.Info("starting leadbot", map[string]interface{}{"environment": cfg.App.Environment})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if err := a.Catalog.Warm(ctx); err != nil {
		log.Warn("catalog warm-up failed, cache fills on demand", map[string]interface{}{"error": err.Error()})
	}

	workers, err := a.StartWorkers(ctx)
	if err != nil {
		zapLog.Fatal("worker startup failed", zap.Error(err))
	}

	go retryLoop(ctx, a, config.GetDuration(cfg.Dialogue.LeadRetryEvery), log)

	srvCfg := httpapi.DefaultConfig()
	srvCfg.Port = cfg.Server.Port
	srvCfg.RequestTimeout = config.GetDuration(cfg.Server.RequestTimeout)
	server := httpapi.NewServer(srvCfg, a.Engine, a.Checks(), log)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-serveErr:
		if err != nil {
			log.Error("http server failed", map[string]interface{}{"error": err.Error()})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	log.Info("leadbot stopped", nil)
}

// retryLoop resubmits leads that failed to record until ctx is done.
func retryLoop(ctx context.Context, a *app.App, every time.Duration, log logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Engine.RetryPendingLeads(ctx)
			if err != nil && ctx.Err() == nil {
				log.Error("pending lead retry failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if n > 0 {
				log.Info("pending leads recorded", map[string]interface{}{"created": n})
			}
		}
	}
}
