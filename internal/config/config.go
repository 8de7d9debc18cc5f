package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when -c is not given.
const DefaultPath = "restockwatch.yaml"

// Config represents the application configuration.
type Config struct {
	Targets   []Target        `yaml:"targets"`
	Rules     RuleSet         `yaml:"rules"`
	Hosts     []HostRule      `yaml:"hosts,omitempty"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Run       RunConfig       `yaml:"run"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	State     StateConfig     `yaml:"state"`
	Notify    NotifyConfig    `yaml:"notify"`
	Events    EventsConfig    `yaml:"events"`
	History   HistoryConfig   `yaml:"history"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Watch     WatchConfig     `yaml:"watch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Target is a monitored product page. URL is both key and fetch locator.
type Target struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name,omitempty"`
}

// Label returns the display form used in notifications.
func (t Target) Label() string {
	if t.Name == "" {
		return t.URL
	}
	return t.Name + ": " + t.URL
}

// RuleSet is the generic negative/positive pattern table.
type RuleSet struct {
	Positive []string `yaml:"positive,omitempty"`
	Negative []string `yaml:"negative,omitempty"`
}

// HostRule overrides the generic rule set for one shop.
type HostRule struct {
	// Match is a host name; it also matches any subdomain.
	Match    string       `yaml:"match"`
	Strategy HostStrategy `yaml:"strategy"`

	// patterns strategy
	Positive []string `yaml:"positive,omitempty"`
	Negative []string `yaml:"negative,omitempty"`

	// markers strategy
	InStock    []string `yaml:"in_stock,omitempty"`
	OutOfStock []string `yaml:"out_of_stock,omitempty"`
	Default    string   `yaml:"default,omitempty"`
}

// FetchConfig controls the page fetcher.
type FetchConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	MaxRedirects   int           `yaml:"max_redirects"`
}

// RunConfig controls a single polling cycle.
type RunConfig struct {
	// Delay is the polite pause between consecutive target fetches.
	Delay time.Duration `yaml:"delay"`
}

// HeartbeatConfig controls the periodic status message. Zero interval disables it.
type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Enabled reports whether heartbeats are sent.
func (h HeartbeatConfig) Enabled() bool { return h.Interval > 0 }

// StateConfig locates the persisted state file.
type StateConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig groups notification channels.
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig holds Bot API credentials.
type TelegramConfig struct {
	BotToken       string        `yaml:"bot_token"`
	ChatID         string        `yaml:"chat_id"`
	APIURL         string        `yaml:"api_url"`
	Timeout        time.Duration `yaml:"timeout"`
	DisablePreview bool          `yaml:"disable_preview"`
	Retry          RetryConfig   `yaml:"retry"`
}

// Configured reports whether both credentials are present.
func (t TelegramConfig) Configured() bool { return t.BotToken != "" && t.ChatID != "" }

// EventsConfig groups transition event sinks.
type EventsConfig struct {
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures JetStream publication of transitions.
type NATSConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`
}

// HistoryConfig configures the SQLite transition log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	// Textfile is written after each run for the node_exporter textfile collector.
	Textfile string `yaml:"textfile,omitempty"`
	// Listen serves /metrics while in watch mode.
	Listen string `yaml:"listen,omitempty"`
}

// WatchConfig configures the built-in scheduler. Cron wins over Interval when set.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
	Cron     string        `yaml:"cron,omitempty"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, expands, defaults and validates the configuration at path.
// .env and .env.local next to the working directory are loaded first.
func Load(path string) (*Config, error) {
	if loaded := loadEnvFiles(); len(loaded) > 0 {
		slog.Debug("Loaded environment files", "files", loaded)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").WithContext("path", path).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			Fatal().WithContext("path", path).Build()
	}
	return Parse(data)
}

// Parse decodes YAML content after ${VAR} expansion and validates it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TargetURLs returns the configured target identifiers in order.
func (c *Config) TargetURLs() []string {
	urls := make([]string, 0, len(c.Targets))
	for _, t := range c.Targets {
		urls = append(urls, t.URL)
	}
	return urls
}

// Summary is a short description used in reload logs.
func (c *Config) Summary() string {
	return fmt.Sprintf("%d targets, %d host rules", len(c.Targets), len(c.Hosts))
}
