// Package api provides an embeddable admin HTTP API for webhook
// management.
//
// The handler is a plain http.Handler; mount it under whatever prefix the
// embedding application uses. Every route that touches owner data reads
// the owner account from the X-Owner-Id header (and an optional inbox from
// X-Inbox-Id), injected into the request context as a scope.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/hookline/hookline"
	"github.com/hookline/hookline/breaker"
	"github.com/hookline/hookline/scope"
	"github.com/hookline/hookline/webhook"
)

// Handler is the root HTTP handler for the admin API.
type Handler struct {
	hl     *hookline.Hookline
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates a new admin API handler on a wired Hookline.
func NewHandler(hl *hookline.Hookline, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		hl:     hl,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Webhooks
	h.mux.HandleFunc("POST /webhooks", h.createWebhook)
	h.mux.HandleFunc("GET /webhooks", h.listWebhooks)
	h.mux.HandleFunc("GET /webhooks/{id}", h.getWebhook)
	h.mux.HandleFunc("PATCH /webhooks/{id}", h.updateWebhook)
	h.mux.HandleFunc("DELETE /webhooks/{id}", h.deleteWebhook)
	h.mux.HandleFunc("POST /webhooks/{id}/rotate", h.rotateSecret)
	h.mux.HandleFunc("POST /webhooks/{id}/activate", h.activateWebhook)
	h.mux.HandleFunc("POST /webhooks/{id}/deactivate", h.deactivateWebhook)
	h.mux.HandleFunc("GET /webhooks/{id}/deliveries", h.listDeliveries)
	h.mux.HandleFunc("GET /webhooks/{id}/stats", h.getStats)

	// Deliveries
	h.mux.HandleFunc("POST /deliveries/{id}/redeliver", h.redeliver)

	// Events
	h.mux.HandleFunc("POST /events", h.sendEvent)

	// Breakers
	h.mux.HandleFunc("GET /breakers", h.listBreakers)
	h.mux.HandleFunc("POST /breakers/reset", h.resetAllBreakers)
	h.mux.HandleFunc("POST /breakers/{key}/reset", h.resetBreaker)

	// Event types
	h.mux.HandleFunc("GET /event-types", h.listEventTypes)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(h.withScope(next)))
}

// withScope stores the owner and inbox headers in the request context.
func (h *Handler) withScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := scope.Scope{
			OwnerID: r.Header.Get("X-Owner-Id"),
			InboxID: r.Header.Get("X-Inbox-Id"),
		}
		next.ServeHTTP(w, r.WithContext(scope.With(r.Context(), sc)))
	})
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requireOwner returns the owner from the request scope, writing a 400 when
// the header was missing.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	sc := scope.From(r.Context())
	if sc.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "missing_owner", "X-Owner-Id header is required")
		return "", false
	}
	return sc.OwnerID, true
}

// writeServiceError maps sentinel errors to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var vErr *webhook.ValidationError
	var openErr *breaker.OpenError

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", vErr.Error())
	case errors.Is(err, hookline.ErrInvalidURL),
		errors.Is(err, hookline.ErrInvalidEvents),
		errors.Is(err, hookline.ErrPayloadValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, hookline.ErrWebhookNotFound),
		errors.Is(err, hookline.ErrDeliveryNotFound),
		errors.Is(err, hookline.ErrEventTypeNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, hookline.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, hookline.ErrWebhookDisabled):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.As(err, &openErr):
		w.Header().Set("Retry-After", strconv.FormatInt(ceilSeconds(openErr.RetryAfter), 10))
		writeError(w, http.StatusServiceUnavailable, "circuit_open", err.Error())
	default:
		h.logger.Error("api internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// ceilSeconds rounds a cooldown up to whole seconds for the Retry-After
// header, so a 100ms remainder still tells clients to wait 1s.
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// JSON helpers. Success bodies are {"data": ...}; error bodies are
// {"error": {"code": ..., "message": ...}}.

type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, envelope{Data: v})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: msg}})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryParam returns a query parameter value, or empty string if not present.
func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryInt returns a query parameter as int or a default value.
func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
