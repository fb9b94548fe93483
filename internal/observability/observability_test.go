package observability

import (
	"context"
	"errors"
	"testing"

	"marketpulse/internal/config"
	"marketpulse/internal/logger"

	"github.com/stretchr/testify/require"
)

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), config.ObservabilityConfig{}, "test")
	require.NoError(t, shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "test")
	require.NotNil(t, ctx)
	EndSpan(span, errors.New("x"))
}

func TestClampRatio(t *testing.T) {
	require.Equal(t, 0.0, clampRatio(-1))
	require.Equal(t, 1.0, clampRatio(3))
	require.Equal(t, 0.25, clampRatio(0.25))
}

func TestNewErrorTrackerWithoutDSN(t *testing.T) {
	tr, err := NewErrorTracker("", "test", "dev")
	require.NoError(t, err)
	require.IsType(t, NopTracker{}, tr)
	tr.CaptureError(context.Background(), errors.New("ignored"), nil)
}
