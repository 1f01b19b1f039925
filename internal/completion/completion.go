// Package completion wraps completion clients with request pacing and deadlines.
package completion

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Client sends a prompt to a completion API.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Guarded applies a rate limit and a per-call timeout in front of a Client.
type Guarded struct {
	next    Client
	limiter *rate.Limiter
	timeout time.Duration
}

// Options configures NewGuarded. RequestsPerSecond <= 0 disables limiting; Timeout <= 0 disables the deadline.
type Options struct {
	RequestsPerSecond float64
	Timeout           time.Duration
}

// NewGuarded wraps next.
func NewGuarded(next Client, opts Options) *Guarded {
	g := &Guarded{next: next, timeout: opts.Timeout}
	if opts.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return g
}

// Complete waits for a rate-limit token (honouring ctx), then calls the wrapped client
// under the configured timeout.
func (g *Guarded) Complete(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("completion rate limit: %w", err)
		}
	}

	out, err := g.next.Complete(ctx, prompt)
	if err != nil {
		return "", err //nolint:wrapcheck // providers already prefix their errors
	}

	return out, nil
}
