// Package httpapi exposes the dialogue engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leadbot/internal/common/logger"
	"leadbot/internal/models"
)

// MessageHandler runs one conversation turn.
type MessageHandler interface {
	HandleMessage(ctx context.Context, key, text string) (*models.TurnResponse, error)
}

// Check is a named readiness check, e.g. a Redis or Postgres ping.
type Check func(ctx context.Context) error

type Config struct {
	Port           int
	RequestTimeout time.Duration
	AllowedOrigins []string
	CheckTimeout   time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		RequestTimeout: 30 * time.Second,
		AllowedOrigins: []string{"*"},
		CheckTimeout:   2 * time.Second,
	}
}

type Server struct {
	config     *Config
	engine     MessageHandler
	checks     map[string]Check
	logger     logger.Logger
	router     chi.Router
	httpServer *http.Server
}

func NewServer(config *Config, engine MessageHandler, checks map[string]Check, log logger.Logger) *Server {
	s := &Server{
		config: config,
		engine: engine,
		checks: checks,
		logger: log.WithFields(map[string]interface{}{"component": "httpapi"}),
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      config.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions/{sessionKey}/messages", s.handleMessage)
	})
	return r
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

// Start listens on the configured port and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. A clean shutdown returns nil.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": ln.Addr().String()})

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		reqLog := s.logger.WithFields(map[string]interface{}{
			"requestId": middleware.GetReqID(r.Context()),
		})
		next.ServeHTTP(ww, r.WithContext(logger.IntoContext(r.Context(), reqLog)))

		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}
		reqLog.Info("request served", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}
