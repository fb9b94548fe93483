package providers

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoProviders is returned by a failover wrapper built with no providers.
var ErrNoProviders = errors.New("no providers configured")

// cooldownFor says how long a provider sits out after a failure of type t.
// Context-length errors are not the provider's fault and stop the failover.
func cooldownFor(t ErrorType, quota time.Duration) (time.Duration, bool) {
	switch t {
	case ErrorContext:
		return 0, false
	case ErrorQuota, ErrorPayment:
		return quota, true
	case ErrorRate:
		return 2 * time.Minute, true
	case ErrorTransient:
		return 30 * time.Second, true
	default:
		return time.Minute, true
	}
}

type cooldowns struct {
	mu    sync.Mutex
	until map[int]time.Time
	quota time.Duration
	now   func() time.Time
}

func newCooldowns(quota time.Duration) *cooldowns {
	if quota <= 0 {
		quota = 15 * time.Minute
	}
	return &cooldowns{until: map[int]time.Time{}, quota: quota, now: time.Now}
}

func (c *cooldowns) disabled(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.until[i])
}

func (c *cooldowns) disable(i int, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until[i] = c.now().Add(d)
}

// tryInOrder calls providers 0..n-1, skipping those cooling down, until one
// succeeds. When every provider is cooling down the first is tried anyway.
// remember=false keeps failures out of the shared cooldowns, for calls made
// with a caller-supplied key.
func tryInOrder[T any](ctx context.Context, c *cooldowns, n int, remember bool, call func(i int) (T, ProviderInfo, error)) (T, ProviderInfo, error) {
	var (
		zero    T
		lastErr error
		info    ProviderInfo
		tried   bool
	)
	if n == 0 {
		return zero, info, ErrNoProviders
	}
	for i := 0; i < n; i++ {
		if c.disabled(i) {
			continue
		}
		tried = true
		out, pi, err := call(i)
		if err == nil {
			return out, pi, nil
		}
		lastErr, info = err, pi
		if ctx.Err() != nil {
			return zero, info, lastErr
		}
		d, next := cooldownFor(ClassifyError(err), c.quota)
		if !next {
			return zero, info, lastErr
		}
		if remember {
			c.disable(i, d)
		}
	}
	if !tried {
		return call(0)
	}
	return zero, info, lastErr
}

// FailoverChat tries each chat provider in turn.
type FailoverChat struct {
	providers []ChatProvider
	cool      *cooldowns
}

func NewFailoverChat(quotaCooldown time.Duration, providers ...ChatProvider) *FailoverChat {
	return &FailoverChat{providers: providers, cool: newCooldowns(quotaCooldown)}
}

func (f *FailoverChat) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	return tryInOrder(ctx, f.cool, len(f.providers), true, func(i int) (ChatResponse, ProviderInfo, error) {
		return f.providers[i].Chat(ctx, req)
	})
}

// FailoverEmbedder tries each embedding provider in turn. Providers should
// share a vector space; row metadata records the model that produced each
// vector.
type FailoverEmbedder struct {
	providers []EmbeddingProvider
	cool      *cooldowns
}

func NewFailoverEmbedder(quotaCooldown time.Duration, providers ...EmbeddingProvider) *FailoverEmbedder {
	return &FailoverEmbedder{providers: providers, cool: newCooldowns(quotaCooldown)}
}

func (f *FailoverEmbedder) Embed(ctx context.Context, req EmbedRequest) ([]float32, ProviderInfo, error) {
	return tryInOrder(ctx, f.cool, len(f.providers), req.APIKey == "", func(i int) ([]float32, ProviderInfo, error) {
		return f.providers[i].Embed(ctx, req)
	})
}
