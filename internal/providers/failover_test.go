package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedChat struct {
	name  string
	errs  []error
	calls int
}

func (s *scriptedChat) Chat(context.Context, ChatRequest) (ChatResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: s.name}
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return ChatResponse{}, info, s.errs[i]
	}
	return ChatResponse{Text: "from " + s.name}, info, nil
}

type keyedEmbedder struct {
	err   error
	calls int
}

func (k *keyedEmbedder) Embed(context.Context, EmbedRequest) ([]float32, ProviderInfo, error) {
	k.calls++
	return nil, ProviderInfo{Name: "gemini"}, k.err
}

func TestFailoverChatHandsOverAndCoolsDown(t *testing.T) {
	limited := &StatusError{Provider: "gateway", StatusCode: 429, Err: errors.New("slow down")}
	primary := &scriptedChat{name: "gateway", errs: []error{limited}}
	backup := &scriptedChat{name: "mock"}
	f := NewFailoverChat(time.Hour, primary, backup)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.cool.now = func() time.Time { return now }

	resp, info, err := f.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	require.Equal(t, "from mock", resp.Text)
	require.Equal(t, "mock", info.Name)

	// Still cooling down: the primary is skipped.
	_, info, err = f.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	require.Equal(t, "mock", info.Name)
	require.Equal(t, 1, primary.calls)

	now = now.Add(3 * time.Minute)
	_, info, err = f.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	require.Equal(t, "gateway", info.Name)
}

func TestFailoverChatStopsOnContextLength(t *testing.T) {
	primary := &scriptedChat{name: "gateway", errs: []error{errors.New("prompt too long for model")}}
	backup := &scriptedChat{name: "mock"}
	f := NewFailoverChat(time.Hour, primary, backup)

	_, _, err := f.Chat(context.Background(), ChatRequest{})
	require.ErrorContains(t, err, "too long")
	require.Zero(t, backup.calls)
}

func TestFailoverChatAllCoolingDownStillTries(t *testing.T) {
	down := errors.New("service unavailable")
	only := &scriptedChat{name: "gateway", errs: []error{down, down}}
	f := NewFailoverChat(time.Hour, only)

	_, _, err := f.Chat(context.Background(), ChatRequest{})
	require.ErrorIs(t, err, down)
	_, _, err = f.Chat(context.Background(), ChatRequest{})
	require.ErrorIs(t, err, down)
	require.Equal(t, 2, only.calls)
}

func TestFailoverEmbedderCallerKeyFailuresAreNotShared(t *testing.T) {
	gem := &keyedEmbedder{err: errors.New("401 unauthorized")}
	f := NewFailoverEmbedder(time.Hour, gem, NewMockProvider(4))

	vec, info, err := f.Embed(context.Background(), EmbedRequest{Input: "x", APIKey: "user-key"})
	require.NoError(t, err)
	require.Len(t, vec, 4)
	require.Equal(t, "mock", info.Name)
	require.False(t, f.cool.disabled(0))

	_, _, err = f.Embed(context.Background(), EmbedRequest{Input: "x"})
	require.NoError(t, err)
	require.True(t, f.cool.disabled(0))
	require.Equal(t, 2, gem.calls)
}

func TestCooldownForQuotaAndPayment(t *testing.T) {
	d, next := cooldownFor(ErrorPayment, time.Hour)
	require.True(t, next)
	require.Equal(t, time.Hour, d)
	_, next = cooldownFor(ErrorContext, time.Hour)
	require.False(t, next)
}

func TestFailoverWithoutProviders(t *testing.T) {
	_, _, err := NewFailoverEmbedder(0).Embed(context.Background(), EmbedRequest{})
	require.ErrorIs(t, err, ErrNoProviders)
}
