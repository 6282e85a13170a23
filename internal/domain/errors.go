package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidOptions   = errors.New("invalid generation options")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrPlanLimit        = errors.New("plan limit exceeded")
	ErrJobTerminal      = errors.New("job already terminal")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// FailureCause tags an ExternalServiceError with the upstream condition.
type FailureCause string

const (
	CauseQuotaExceeded     FailureCause = "quota_exceeded"
	CauseRateLimited       FailureCause = "rate_limited"
	CauseMalformedResponse FailureCause = "malformed_response"
	CauseTimeout           FailureCause = "timeout"
	CauseUnavailable       FailureCause = "service_unavailable"
)

// ExternalServiceError wraps a failure from an upstream API (OpenAI, Shopify,
// Stripe) with the service name and the upstream detail.
type ExternalServiceError struct {
	Service string
	Cause   FailureCause
	Detail  string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Service, e.Cause, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Cause)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError builds a tagged upstream failure.
func NewExternalServiceError(service string, cause FailureCause, detail string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Cause: cause, Detail: detail, Err: err}
}

// AsExternalServiceError unwraps err to an ExternalServiceError if present.
func AsExternalServiceError(err error) (*ExternalServiceError, bool) {
	var ese *ExternalServiceError
	if errors.As(err, &ese) {
		return ese, true
	}
	return nil, false
}
