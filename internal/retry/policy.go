// Package retry computes backoff delays for transient delivery failures.
package retry

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/restockwatch/internal/config"
)

// Policy holds backoff settings. It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth and for server-requested waits
	MaxRetries int                     // attempts after the first failure
}

// DefaultPolicy is linear, 1s initial, 30s cap, no retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second}
}

// FromConfig builds a policy; zero durations fall back to defaults.
func FromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxRetries > 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.Initial > 0 {
		p.Initial = cfg.Initial
	}
	if cfg.Max > 0 {
		p.Max = cfg.Max
	}
	switch cfg.Backoff {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = cfg.Backoff
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the wait before retry n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		d = p.Initial
	case config.RetryBackoffExponential:
		if n > 62 || p.Initial > p.Max>>(n-1) {
			return p.Max
		}
		d = p.Initial << (n - 1)
	default:
		d = time.Duration(n) * p.Initial
	}
	return p.Clamp(d)
}

// Clamp caps d at Max.
func (p Policy) Clamp(d time.Duration) time.Duration {
	if d > p.Max {
		return p.Max
	}
	return d
}

// Validate reports a policy that cannot be applied.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
