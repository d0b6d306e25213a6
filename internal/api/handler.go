package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler serves the built-in liveness and health endpoints. Health state is
// mutable: the bootstrap marks readiness once the listener is bound, and a
// failed startup task records its error here instead of crashing the server.
type Handler struct {
	clock func() time.Time

	mu                 sync.RWMutex
	status             string
	ready              bool
	lastRun            string
	startupError       string
	databaseConfigured bool
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler. databaseConfigured mirrors the
// presence-only database check from configuration resolution.
func NewHandler(databaseConfigured bool, opts ...HandlerOption) *Handler {
	h := &Handler{
		status:             "ok",
		databaseConfigured: databaseConfigured,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MarkStartup records that the service is in its initial startup run.
func (h *Handler) MarkStartup() {
	h.mu.Lock()
	h.lastRun = "startup"
	h.mu.Unlock()
}

// MarkRun stamps the current time as the last completed run.
func (h *Handler) MarkRun() {
	h.mu.Lock()
	h.lastRun = h.clock().Format(time.RFC3339)
	h.ready = true
	h.mu.Unlock()
}

// SetReady flips the readiness flag. The bootstrap calls this only after the
// listener bind has succeeded.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

// SetStartupError records a startup failure; the service keeps serving so
// operators can read the error from the health endpoint.
func (h *Handler) SetStartupError(err error) {
	h.mu.Lock()
	h.status = "error"
	h.ready = false
	h.startupError = err.Error()
	h.mu.Unlock()
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	h.mu.RLock()
	resp := healthResponse{
		Status:             h.status,
		Ready:              h.ready,
		LastRun:            h.lastRun,
		StartupError:       h.startupError,
		DatabaseConfigured: h.databaseConfigured,
		Timestamp:          h.clock(),
	}
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status             string    `json:"status"`
	Ready              bool      `json:"ready"`
	LastRun            string    `json:"lastRun,omitempty"`
	StartupError       string    `json:"startupError,omitempty"`
	DatabaseConfigured bool      `json:"databaseConfigured"`
	Timestamp          time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}
