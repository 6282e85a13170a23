package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"descriptly/internal/domain"
)

// errorBody is the structured error envelope returned on every failure.
type errorBody struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	Details   any       `json:"details,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, msg string, details ...any) {
	body := errorBody{
		Error:     msg,
		Code:      code,
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
		Method:    r.Method,
	}
	if len(details) > 0 {
		body.Details = details[0]
	}
	a.json(w, status, body)
}

// domainError maps domain sentinels and upstream failures onto the error
// envelope. Unexpected errors degrade to a generic internal code so internals
// never leak to clients.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, r, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrInvalidOptions):
		a.error(w, r, http.StatusBadRequest, "validation_error", "invalid generation options")
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, r, http.StatusForbidden, "quota_exceeded", "monthly generation quota exceeded")
	case errors.Is(err, domain.ErrPlanLimit):
		a.error(w, r, http.StatusForbidden, "plan_limit", "request exceeds plan limits")
	case errors.Is(err, domain.ErrJobTerminal):
		a.error(w, r, http.StatusConflict, "job_terminal", "job already finished")
	case errors.Is(err, domain.ErrInvalidSignature):
		a.error(w, r, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
	default:
		if ese, ok := domain.AsExternalServiceError(err); ok {
			a.error(w, r, http.StatusBadGateway, "upstream_error", "upstream service failed", map[string]string{
				"service": ese.Service,
				"cause":   string(ese.Cause),
			})
			return
		}
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		a.error(w, r, http.StatusInternalServerError, "internal", "internal server error")
	}
}
