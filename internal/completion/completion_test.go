package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	completeFunc func(ctx context.Context, prompt string) (string, error)
	calls        int
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.calls++

	return m.completeFunc(ctx, prompt)
}

func TestGuarded_PassesThrough(t *testing.T) {
	next := &mockClient{completeFunc: func(_ context.Context, prompt string) (string, error) {
		return "echo: " + prompt, nil
	}}

	out, err := NewGuarded(next, Options{}).Complete(t.Context(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
	assert.Equal(t, 1, next.calls)
}

func TestGuarded_Timeout(t *testing.T) {
	next := &mockClient{completeFunc: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()

		return "", ctx.Err()
	}}

	_, err := NewGuarded(next, Options{Timeout: 20 * time.Millisecond}).Complete(t.Context(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuarded_RateLimitHonoursContext(t *testing.T) {
	next := &mockClient{completeFunc: func(context.Context, string) (string, error) { return "ok", nil }}

	// One token per 10s: the first call consumes the burst, the second cannot wait that long.
	g := NewGuarded(next, Options{RequestsPerSecond: 0.1})

	_, err := g.Complete(t.Context(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Complete(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestGuarded_PropagatesErrors(t *testing.T) {
	apiErr := errors.New("bad gateway")
	next := &mockClient{completeFunc: func(context.Context, string) (string, error) { return "", apiErr }}

	_, err := NewGuarded(next, Options{RequestsPerSecond: 100, Timeout: time.Second}).Complete(t.Context(), "p")
	assert.ErrorIs(t, err, apiErr)
}
