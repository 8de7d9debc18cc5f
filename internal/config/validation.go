package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/normalization"
)

// HostStrategy selects the classifier used for a host rule.
type HostStrategy string

const (
	// HostStrategyPatterns uses host-specific positive/negative text patterns.
	HostStrategyPatterns HostStrategy = "patterns"
	// HostStrategyMarkers uses only structured in-stock/out-of-stock markers.
	HostStrategyMarkers HostStrategy = "markers"
)

var hostStrategyNormalizer = normalization.NewNormalizer(map[string]HostStrategy{
	"patterns": HostStrategyPatterns,
	"markers":  HostStrategyMarkers,
}, "")

// NormalizeHostStrategy returns an empty strategy for unknown input.
func NormalizeHostStrategy(raw string) HostStrategy {
	return hostStrategyNormalizer.Normalize(raw)
}

// Validate checks a defaulted configuration.
func Validate(cfg *Config) error {
	if err := validateTargets(cfg.Targets); err != nil {
		return err
	}
	if err := validatePatterns("rules.positive", cfg.Rules.Positive); err != nil {
		return err
	}
	if err := validatePatterns("rules.negative", cfg.Rules.Negative); err != nil {
		return err
	}
	for i, h := range cfg.Hosts {
		if err := validateHostRule(i, h); err != nil {
			return err
		}
	}
	if cfg.Run.Delay < 0 {
		return invalid("run.delay must not be negative")
	}
	if cfg.Heartbeat.Interval < 0 {
		return invalid("heartbeat.interval must not be negative")
	}
	if cfg.Fetch.Timeout < 0 || cfg.Notify.Telegram.Timeout < 0 {
		return invalid("timeouts must not be negative")
	}
	if r := cfg.Notify.Telegram.Retry; r.MaxRetries < 0 || r.Initial < 0 || r.Max < 0 {
		return invalid("notify.telegram.retry values must not be negative")
	}
	if cfg.Fetch.MaxBodyBytes < 0 {
		return invalid("fetch.max_body_bytes must not be negative")
	}
	if cfg.Watch.Interval < 0 {
		return invalid("watch.interval must not be negative")
	}
	if cfg.Events.NATS.Enabled && strings.TrimSpace(cfg.Events.NATS.Subject) == "" {
		return invalid("events.nats.subject is required when NATS is enabled")
	}
	return nil
}

// ValidateNotify requires Telegram credentials; dry runs skip it.
func ValidateNotify(cfg *Config) error {
	if !cfg.Notify.Telegram.Configured() {
		return errors.ConfigError("telegram bot_token and chat_id are required (set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID)").Build()
	}
	if _, err := url.ParseRequestURI(cfg.Notify.Telegram.APIURL); err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "invalid notify.telegram.api_url").Fatal().Build()
	}
	return nil
}

func validateTargets(targets []Target) error {
	if len(targets) == 0 {
		return invalid("at least one target must be configured")
	}
	seen := make(map[string]bool, len(targets))
	for i, t := range targets {
		u, err := url.Parse(t.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.ValidationError("target url must be an absolute http(s) URL").
				WithContext("index", i).WithContext("url", t.URL).Build()
		}
		if seen[t.URL] {
			return errors.ValidationError("duplicate target").WithContext("url", t.URL).Build()
		}
		seen[t.URL] = true
	}
	return nil
}

func validateHostRule(i int, h HostRule) error {
	field := fmt.Sprintf("hosts[%d]", i)
	if strings.TrimSpace(h.Match) == "" {
		return invalid(field + ".match is required")
	}
	switch h.Strategy {
	case HostStrategyPatterns:
		if len(h.Positive) == 0 {
			return invalid(field + ": patterns strategy needs at least one positive pattern")
		}
		if err := validatePatterns(field+".positive", h.Positive); err != nil {
			return err
		}
		return validatePatterns(field+".negative", h.Negative)
	case HostStrategyMarkers:
		if len(h.InStock) == 0 {
			return invalid(field + ": markers strategy needs at least one in_stock marker")
		}
		if h.Default != "" && h.Default != "available" && h.Default != "not_available" {
			return invalid(field + ".default must be available or not_available")
		}
		if err := validatePatterns(field+".in_stock", h.InStock); err != nil {
			return err
		}
		return validatePatterns(field+".out_of_stock", h.OutOfStock)
	default:
		return invalid(field + ".strategy must be one of " + strings.Join(hostStrategyNormalizer.Keys(), ", "))
	}
}

func validatePatterns(field string, patterns []string) error {
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return errors.WrapError(err, errors.CategoryValidation, "invalid pattern").
				Fatal().WithContext("field", field).WithContext("pattern", p).Build()
		}
	}
	return nil
}

func invalid(msg string) error {
	return errors.ValidationError(msg).Build()
}
