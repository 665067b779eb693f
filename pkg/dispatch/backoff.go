package dispatch

import (
	"context"
	"math/rand"
	"time"

	"github.com/argus-ai/argus/pkg/config"
)

// Policy bounds retries on a single model and shapes the delay between them.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the maximum random fraction added to each delay.
	// Must stay below 1.0 to keep successive delays non-decreasing.
	Jitter float64
}

// DefaultPolicy returns the standard retry policy: 3 attempts per model,
// 1s base delay doubling to a 10s cap, up to 25% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Jitter:      0.25,
	}
}

// PolicyFromConfig converts the config retry section, falling back to the
// defaults for any unset or out-of-range field.
func PolicyFromConfig(rc config.RetryConfig) Policy {
	p := DefaultPolicy()
	if rc.MaxAttempts > 0 {
		p.MaxAttempts = rc.MaxAttempts
	}
	if rc.BaseDelayMS > 0 {
		p.BaseDelay = time.Duration(rc.BaseDelayMS) * time.Millisecond
	}
	if rc.MaxDelayMS > 0 {
		p.MaxDelay = time.Duration(rc.MaxDelayMS) * time.Millisecond
	}
	// Jitter at or above 1.0 would let a jittered delay overtake the next
	// doubled one, so such values keep the default.
	if rc.Jitter > 0 && rc.Jitter < 1 {
		p.Jitter = rc.Jitter
	}
	return p
}

// Delay returns the backoff before retrying after the given 1-based attempt:
// base doubling per attempt, plus jitter, never above MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.MaxDelay
	if shift := uint(attempt - 1); shift < 30 {
		exp := p.BaseDelay << shift
		if exp < p.MaxDelay {
			d = exp
		}
	}

	d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
