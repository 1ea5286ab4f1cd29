package inference

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/serbia-gov/clinical-dx/internal/shared/auth"
	apperrors "github.com/serbia-gov/clinical-dx/internal/shared/errors"
	"github.com/serbia-gov/clinical-dx/internal/shared/metrics"
)

// Info is served on GET /
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Model   string `json:"model"`
}

// Handler provides HTTP handlers for the inference endpoint
type Handler struct {
	service *Service
	checker HealthChecker
	logger  zerolog.Logger
	info    Info
}

// NewHandler creates a new inference handler. checker backs /ready and may
// be nil, in which case the service always reports ready.
func NewHandler(service *Service, checker HealthChecker, logger zerolog.Logger, info Info) *Handler {
	return &Handler{
		service: service,
		checker: checker,
		logger:  logger,
		info:    info,
	}
}

// Routes registers the inference routes. generateMiddleware wraps only
// POST /generate, so probes stay unauthenticated and unthrottled.
func (h *Handler) Routes(generateMiddleware ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetInfo)
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	r.With(generateMiddleware...).Post("/generate", h.Generate)

	return r
}

// Generate handles diagnosis extraction requests
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := NewClinicalNoteRequest("")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperrors.Invalidf("invalid request body: %v", err))
		return
	}

	result, source, err := h.service.Diagnose(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	metrics.RecordGeneration("success")
	evt := h.logger.Info().
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("source", string(source)).
		Int("diagnoses", len(result.Diagnoses)).
		Dur("duration", time.Since(start))
	if caller := auth.GetCaller(r.Context()); caller != nil {
		evt = evt.Str("caller", caller.Subject)
	}
	evt.Msg("diagnoses extracted")

	writeJSON(w, http.StatusOK, result)
}

// GetInfo returns service metadata
func (h *Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}

// HealthCheck is a liveness probe; it never checks the model server.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// ReadyCheck reports whether the model server answers its health endpoint
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ready",
			"checks": map[string]string{"model": "not configured"},
		})
		return
	}

	if err := h.checker.Health(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("model server not ready")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": map[string]string{"model": "not ready: " + err.Error()},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{"model": "ready"},
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError logs the full failure and answers with the classified detail
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.Classify(err)

	evt := h.logger.Error()
	if appErr.HTTPStatus < http.StatusInternalServerError {
		evt = h.logger.Warn()
	}
	evt.Err(err).
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("code", appErr.Code).
		Int("status", appErr.HTTPStatus).
		Msg("generate failed")

	metrics.RecordGeneration(outcome(appErr))
	writeJSON(w, appErr.HTTPStatus, map[string]string{"detail": appErr.Message})
}

func outcome(appErr *apperrors.AppError) string {
	switch appErr.HTTPStatus {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusServiceUnavailable:
		return "resource_exhausted"
	default:
		return "error"
	}
}
