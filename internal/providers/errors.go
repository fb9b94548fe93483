package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorPayment   ErrorType = "payment"
	ErrorAuth      ErrorType = "auth"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
)

// StatusError is a non-2xx answer from an upstream model API.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func wrapStatus(provider string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: provider, StatusCode: apiErr.StatusCode, Err: err}
	}
	return fmt.Errorf("%s request failed: %w", provider, err)
}

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	switch code := StatusCode(err); {
	case code == http.StatusTooManyRequests:
		return ErrorRate
	case code == http.StatusPaymentRequired:
		return ErrorPayment
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrorAuth
	case code >= 500:
		return ErrorTransient
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate limit"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "402"), strings.Contains(e, "payment"):
		return ErrorPayment
	case strings.Contains(e, "401"), strings.Contains(e, "unauthorized"), strings.Contains(e, "key missing"):
		return ErrorAuth
	case strings.Contains(e, "context length"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "deadline exceeded"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
