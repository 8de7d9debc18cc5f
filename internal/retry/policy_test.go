package retry

import (
	"context"
	"testing"
	"time"

	"git.home.luguber.info/inful/restockwatch/internal/config"
)

func TestFromConfigDefaults(t *testing.T) {
	p := FromConfig(config.RetryConfig{})
	if p.Mode != config.RetryBackoffLinear {
		t.Fatalf("expected linear default mode got %s", p.Mode)
	}
	if p.Initial != time.Second || p.Max != 30*time.Second {
		t.Fatalf("unexpected durations %v/%v", p.Initial, p.Max)
	}
	if p.MaxRetries != 0 {
		t.Fatalf("expected no retries by default got %d", p.MaxRetries)
	}
}

func TestFromConfigClampsInitial(t *testing.T) {
	p := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffFixed, Initial: 5 * time.Second, Max: 2 * time.Second, MaxRetries: 3})
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Mode != config.RetryBackoffFixed || p.MaxRetries != 3 {
		t.Fatalf("unexpected policy %+v", p)
	}
}

func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	cases := []struct {
		name string
		p    Policy
		want []time.Duration
	}{
		{"fixed", Policy{Mode: config.RetryBackoffFixed, Initial: 100 * ms, Max: 500 * ms}, []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{"linear", Policy{Mode: config.RetryBackoffLinear, Initial: 100 * ms, Max: 250 * ms}, []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{"exponential", Policy{Mode: config.RetryBackoffExponential, Initial: 50 * ms, Max: 160 * ms}, []time.Duration{50 * ms, 100 * ms, 160 * ms, 160 * ms}},
	}
	for _, c := range cases {
		for i, want := range c.want {
			if got := c.p.Delay(i + 1); got != want {
				t.Fatalf("%s retry %d: expected %v got %v", c.name, i+1, want, got)
			}
		}
	}
	if d := cases[2].p.Delay(64); d != 160*ms {
		t.Fatalf("large exponent should hit the cap, got %v", d)
	}
	slow := Policy{Mode: config.RetryBackoffExponential, Initial: 30 * time.Second, Max: time.Minute}
	for n := 1; n <= 70; n++ {
		if d := slow.Delay(n); d <= 0 || d > time.Minute {
			t.Fatalf("retry %d: delay %v outside (0, 1m]", n, d)
		}
	}
	if d := cases[0].p.Delay(0); d != 0 {
		t.Fatalf("retry 0 expected 0 got %v", d)
	}
}

func TestValidate(t *testing.T) {
	if err := (Policy{Initial: 0, Max: time.Second}).Validate(); err == nil {
		t.Fatalf("expected error for zero initial")
	}
	if err := (Policy{Initial: time.Second, Max: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero max")
	}
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

func TestWaitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); err == nil {
		t.Fatalf("expected context error")
	}
	if err := Wait(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
