package config

import (
	"time"

	"git.home.luguber.info/inful/restockwatch/internal/foundation/normalization"
)

// RetryBackoffMode enumerates supported backoff strategies.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewNormalizer(map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, RetryBackoffLinear)

// NormalizeRetryBackoffMode maps unknown input to linear.
func NormalizeRetryBackoffMode(raw string) RetryBackoffMode {
	return retryBackoffNormalizer.Normalize(raw)
}

// RetryConfig controls resending after transient delivery failures.
// MaxRetries 0 sends once.
type RetryConfig struct {
	MaxRetries int              `yaml:"max_retries"`
	Backoff    RetryBackoffMode `yaml:"backoff"`
	Initial    time.Duration    `yaml:"initial"`
	Max        time.Duration    `yaml:"max"`
}
