package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eugenenazirov/service-starter/internal/config"
	"github.com/eugenenazirov/service-starter/internal/status"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler serves health endpoints and the effective configuration.
type Handler struct {
	cfg     config.Config
	tracker *status.Tracker

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler for the given configuration and tracker.
func NewHandler(cfg config.Config, tracker *status.Tracker, opts ...HandlerOption) *Handler {
	h := &Handler{
		cfg:     cfg,
		tracker: tracker,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// handleHealth succeeds only when the application is both alive and ready. It
// serves the last recorded report and never runs the checks itself.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	report := h.tracker.Report()
	if !report.Ready {
		writeJSON(w, http.StatusServiceUnavailable, unavailableResponse{
			Status:  "service unavailable",
			Message: "Service is not ready to handle requests",
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: h.clock()})
}

func (h *Handler) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: h.clock()})
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	report := h.readiness(r.Context())
	if !report.Ready {
		writeJSON(w, http.StatusServiceUnavailable, unavailableResponse{
			Status:  "service unavailable",
			Message: "Service is not ready to handle requests",
			Details: &report,
		})
		return
	}
	writeJSON(w, http.StatusOK, readinessResponse{Status: "ok", Details: report})
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Report())
}

func (h *Handler) handleConfig(w http.ResponseWriter, _ *http.Request) {
	doc, err := h.cfg.Document()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{
		Environment: h.cfg.App.Env,
		Sources:     h.cfg.Sources,
		Config:      doc.Interface(),
	})
}

// readiness re-runs the checks once warmup has completed. Only the readiness
// endpoint refreshes the report; the other endpoints read what it left behind.
func (h *Handler) readiness(ctx context.Context) status.Report {
	if h.tracker.Report().Initialized {
		_ = h.tracker.Check(ctx)
	}
	return h.tracker.Report()
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
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type readinessResponse struct {
	Status  string        `json:"status"`
	Details status.Report `json:"details"`
}

type unavailableResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details *status.Report `json:"details,omitempty"`
}

type configResponse struct {
	Environment string         `json:"environment"`
	Sources     []string       `json:"sources"`
	Config      map[string]any `json:"config"`
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
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
