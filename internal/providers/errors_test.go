package providers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":         ErrorQuota,
		"429 too many requests":      ErrorRate,
		"gateway generate failed":    ErrorPermanent,
		"payment required":           ErrorPayment,
		"gemini api key missing":     ErrorAuth,
		"input too long":             ErrorContext,
		"context deadline exceeded":  ErrorTransient,
		"service temporarily broken": ErrorTransient,
		"bad request":                ErrorPermanent,
	}
	for msg, want := range cases {
		require.Equal(t, want, ClassifyError(errors.New(msg)), msg)
	}
	require.Equal(t, ErrorType(""), ClassifyError(nil))
}

func TestClassifyErrorUsesStatusCode(t *testing.T) {
	wrapped := fmt.Errorf("agent sentiment: %w", &StatusError{Provider: "gateway", StatusCode: 402, Err: errors.New("nope")})
	require.Equal(t, 402, StatusCode(wrapped))
	require.Equal(t, ErrorPayment, ClassifyError(wrapped))
	require.Equal(t, ErrorRate, ClassifyError(&StatusError{Provider: "gateway", StatusCode: 429, Err: errors.New("slow down")}))
	require.Equal(t, ErrorTransient, ClassifyError(&StatusError{Provider: "gateway", StatusCode: 503, Err: errors.New("down")}))
	require.Equal(t, "gateway error 429: slow down", (&StatusError{Provider: "gateway", StatusCode: 429, Err: errors.New("slow down")}).Error())
}
