package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

const readinessTimeout = 2 * time.Second

// ErrSessionStopped reports a miner that is not mining.
var ErrSessionStopped = errors.New("mining session is not running")

// HealthResponse represents the response for health endpoints
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// CheckFunc reports whether one dependency is ready.
type CheckFunc func(ctx context.Context) error

// SessionCheck is ready while the session is mining.
func SessionCheck(s Session) CheckFunc {
	return func(context.Context) error {
		if !s.Running() {
			return ErrSessionStopped
		}
		return nil
	}
}

// HandleHealthz provides a basic liveness check
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{Status: StatusOK})
	}
}

// HandleReadyz runs every check and answers 503 when any of them fails.
func HandleReadyz(checks map[string]CheckFunc) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := HealthResponse{Status: StatusOK, Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logger.FromContext(ctx).Warn(LogMsgReadinessFailed, "check", name, "error", err)
				resp.Checks[name] = err.Error()
				resp.Status = StatusUnavailable
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = StatusOK
		}
		respondJSON(w, status, resp)
	}
}
