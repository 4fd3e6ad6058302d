package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/workflow"
)

const maxBodyBytes = 64 << 10

type messageRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "sessionKey")
	log := logger.FromContext(r.Context(), s.logger)

	var req messageRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	resp, err := s.engine.HandleMessage(r.Context(), key, req.Message)
	if err != nil {
		status, code := statusFor(err)
		log.Error("turn failed", map[string]interface{}{
			"sessionKey": key,
			"status":     status,
			"error":      err.Error(),
		})
		writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, workflow.ErrEmptySessionKey):
		return http.StatusBadRequest, "EMPTY_SESSION_KEY"
	case errors.Is(err, apperrors.ErrSessionCorrupted):
		return http.StatusInternalServerError, string(apperrors.ErrCodeSessionCorrupted)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "TURN_TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.CheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not_ready", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
