// Package retry implements the bounded-attempts, exponentially-growing
// backoff policy used by the master's per-node replication tasks, the join
// client, and the circuit breaker's recovery sync. Liveness pings (the
// prober, the recovery poll, and the join server's dial check) are not
// retried through it.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config holds the tunables.
type Config struct {
	MaxRetries  int
	InitBackoff time.Duration
	Factor      float64
	MaxBackoff  time.Duration
}

// DefaultConfig returns MAX_RETRIES=5, INIT_BACKOFF=1000ms, FACTOR=2,
// MAX_BACKOFF=3,600,000ms.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  5,
		InitBackoff: 1000 * time.Millisecond,
		Factor:      2,
		MaxBackoff:  3_600_000 * time.Millisecond,
	}
}

// Policy is one attempt sequence. It is not safe for concurrent use by
// multiple goroutines; callers construct a fresh Policy per retry loop.
type Policy struct {
	cfg       Config
	remaining int
	backoff   time.Duration
}

// New starts a policy at the configured remaining-attempts count and
// initial backoff.
func New(cfg Config) *Policy {
	return &Policy{cfg: cfg, remaining: cfg.MaxRetries, backoff: cfg.InitBackoff}
}

// Next decrements the remaining-attempts counter and advances the backoff
// delay. It returns false once attempts are exhausted, at which point the
// caller must stop retrying.
func (p *Policy) Next() bool {
	if p.remaining <= 0 {
		return false
	}
	p.remaining--
	jitter := time.Duration(0)
	if p.backoff > 0 {
		jitter = time.Duration(rand.Int63n(int64(p.backoff)))
	}
	next := time.Duration(float64(p.backoff)*p.cfg.Factor) + jitter
	if next > p.cfg.MaxBackoff {
		next = p.cfg.MaxBackoff
	}
	p.backoff = next
	return true
}

// Delay sleeps for the current backoff, honoring ctx cancellation. It is a
// no-op once attempts are exhausted (remaining == 0).
func (p *Policy) Delay(ctx context.Context) error {
	if p.remaining <= 0 {
		return nil
	}
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remaining reports the attempts left, for logging/tests.
func (p *Policy) Remaining() int { return p.remaining }

// Do runs fn under the policy: every attempt, including the first, is gated
// behind Next(), so Do makes exactly cfg.MaxRetries total calls to fn. On
// error it backs off via Delay before the next Next()-gated attempt, and
// returns the last error once attempts are exhausted.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	p := New(cfg)
	var lastErr error
	for p.Next() {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if err := p.Delay(ctx); err != nil {
			return err
		}
	}
	return lastErr
}
