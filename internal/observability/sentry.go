package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// ErrorTracker reports pipeline-level failures.
type ErrorTracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// SentryTracker implements ErrorTracker via Sentry.
type SentryTracker struct {
	hub *sentry.Hub
}

// NewErrorTracker returns a Sentry tracker, or a no-op one when dsn is empty.
func NewErrorTracker(dsn, environment, release string) (ErrorTracker, error) {
	if dsn == "" {
		return NopTracker{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	}); err != nil {
		return nil, err
	}
	return &SentryTracker{hub: sentry.CurrentHub()}, nil
}

func (t *SentryTracker) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
	})
	hub.CaptureException(err)
}

func (t *SentryTracker) Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

type NopTracker struct{}

func (NopTracker) CaptureError(context.Context, error, map[string]string) {}
func (NopTracker) Flush(time.Duration)                                    {}
