package config

import "time"

const (
	defaultFetchTimeout   = 30 * time.Second
	defaultUserAgent      = "AvailabilityMonitor/1.0"
	defaultAcceptLanguage = "cs,en;q=0.8"
	defaultMaxBodyBytes   = 5 << 20
	defaultMaxRedirects   = 10
	defaultDelay          = 3 * time.Second
	defaultStatePath      = "state.json"
	defaultTelegramAPI    = "https://api.telegram.org"
	defaultTelegramTimout = 20 * time.Second
	defaultNATSURL        = "nats://127.0.0.1:4222"
	defaultNATSSubject    = "restockwatch.transitions"
	defaultNATSTimeout    = 5 * time.Second
	defaultHistoryPath    = "history.db"
	defaultWatchInterval  = 10 * time.Minute
)

// DefaultNegativePatterns are the sold-out, pre-order and "watch this item"
// phrasings used by the Czech shops the tool was written for.
var DefaultNegativePatterns = []string{
	`Položka byla vyprodána`,
	`Dostupnost:\s*Objednáno`,
	`\bHlídat\b`,
}

// DefaultPositivePatterns are add-to-cart and buy-now labels plus the
// schema.org in-stock marker.
var DefaultPositivePatterns = []string{
	`Do košíku`,
	`Vložit do košíku`,
	`Přidat do košíku`,
	`Koupit`,
	`schema\.org/InStock`,
}

// DefaultHostRules apply when the configuration omits the hosts key.
// kuma.cz renders "Do košíku" on sold-out pages, so only the structured
// availability markers are trusted there.
var DefaultHostRules = []HostRule{
	{
		Match:      "kuma.cz",
		Strategy:   HostStrategyMarkers,
		InStock:    []string{`schema\.org/InStock`},
		OutOfStock: []string{`schema\.org/(?:OutOfStock|SoldOut|PreOrder)`},
		Default:    "not_available",
	},
}

// ApplyDefaults fills zero values. Omitted rule tables fall back to the built-in ones.
func ApplyDefaults(cfg *Config) {
	if cfg.Rules.Positive == nil {
		cfg.Rules.Positive = append([]string(nil), DefaultPositivePatterns...)
	}
	if cfg.Rules.Negative == nil {
		cfg.Rules.Negative = append([]string(nil), DefaultNegativePatterns...)
	}
	if cfg.Hosts == nil {
		cfg.Hosts = cloneHostRules(DefaultHostRules)
	}
	for i := range cfg.Hosts {
		if cfg.Hosts[i].Strategy == "" {
			cfg.Hosts[i].Strategy = HostStrategyPatterns
		} else {
			cfg.Hosts[i].Strategy = NormalizeHostStrategy(string(cfg.Hosts[i].Strategy))
		}
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = defaultFetchTimeout
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = defaultUserAgent
	}
	if cfg.Fetch.AcceptLanguage == "" {
		cfg.Fetch.AcceptLanguage = defaultAcceptLanguage
	}
	if cfg.Fetch.MaxBodyBytes == 0 {
		cfg.Fetch.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Fetch.MaxRedirects == 0 {
		cfg.Fetch.MaxRedirects = defaultMaxRedirects
	}

	if cfg.Run.Delay == 0 {
		cfg.Run.Delay = defaultDelay
	}
	if cfg.State.Path == "" {
		cfg.State.Path = defaultStatePath
	}

	tg := &cfg.Notify.Telegram
	if tg.APIURL == "" {
		tg.APIURL = defaultTelegramAPI
	}
	if tg.Timeout == 0 {
		tg.Timeout = defaultTelegramTimout
	}
	tg.Retry.Backoff = NormalizeRetryBackoffMode(string(tg.Retry.Backoff))

	if cfg.Events.NATS.URL == "" {
		cfg.Events.NATS.URL = defaultNATSURL
	}
	if cfg.Events.NATS.Subject == "" {
		cfg.Events.NATS.Subject = defaultNATSSubject
	}
	if cfg.Events.NATS.Timeout == 0 {
		cfg.Events.NATS.Timeout = defaultNATSTimeout
	}
	if cfg.History.Path == "" {
		cfg.History.Path = defaultHistoryPath
	}
	if cfg.Watch.Interval == 0 && cfg.Watch.Cron == "" {
		cfg.Watch.Interval = defaultWatchInterval
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

func cloneHostRules(in []HostRule) []HostRule {
	out := make([]HostRule, len(in))
	for i, r := range in {
		out[i] = r
		out[i].Positive = append([]string(nil), r.Positive...)
		out[i].Negative = append([]string(nil), r.Negative...)
		out[i].InStock = append([]string(nil), r.InStock...)
		out[i].OutOfStock = append([]string(nil), r.OutOfStock...)
	}
	return out
}
