package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/events"
	"git.home.luguber.info/inful/restockwatch/internal/fetch"
	"git.home.luguber.info/inful/restockwatch/internal/history"
	"git.home.luguber.info/inful/restockwatch/internal/logfields"
	"git.home.luguber.info/inful/restockwatch/internal/metrics"
	"git.home.luguber.info/inful/restockwatch/internal/notify"
)

// Global is shared state handed to every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
	// Err receives log output. Defaults to stderr.
	Err io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) errOut() io.Writer {
	if g == nil || g.Err == nil {
		return os.Stderr
	}
	return g.Err
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"restockwatch.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check    CheckCmd    `cmd:"" help:"Check every target once and notify on restocks"`
	Watch    WatchCmd    `cmd:"" help:"Check targets on a schedule until interrupted"`
	Classify ClassifyCmd `cmd:"" help:"Classify a single page without touching state"`
	Status   StatusCmd   `cmd:"" help:"Show stored availability and the last heartbeat"`
	History  HistoryCmd  `cmd:"" help:"Show recorded transitions and heartbeats"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once. The level and
// format are refined from configuration when a command loads it.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// setupLogging installs the handler selected in cfg. -v always wins.
func setupLogging(w io.Writer, cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := cfg.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads the configuration and applies its logging section.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	logger := setupLogging(g.errOut(), cfg.Logging, root.Verbose)
	if g != nil {
		g.Logger = logger
	}
	slog.Debug("Configuration loaded", logfields.Path(root.Config), slog.String("summary", cfg.Summary()))
	return cfg, nil
}

// newNotifier returns the Telegram notifier, or a log notifier for dry runs.
func newNotifier(cfg *config.Config, dryRun bool) (notify.Notifier, error) {
	if dryRun {
		return notify.LogNotifier{}, nil
	}
	if err := config.ValidateNotify(cfg); err != nil {
		return nil, err
	}
	return notify.NewTelegram(cfg.Notify.Telegram), nil
}

// newPrometheus returns a recorder when metrics output is configured.
// withRuntime adds Go and process collectors for long-running processes.
func newPrometheus(cfg *config.Config, withRuntime bool) *metrics.PrometheusRecorder {
	if cfg.Metrics.Textfile == "" && cfg.Metrics.Listen == "" {
		return nil
	}
	reg := prom.NewRegistry()
	if withRuntime {
		reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	}
	return metrics.NewPrometheusRecorder(reg)
}

func recorderOf(p *metrics.PrometheusRecorder) metrics.Recorder {
	if p == nil {
		return metrics.NoopRecorder{}
	}
	return p
}

// sideChannels opens the optional event publisher and history store. Either
// failing to open only disables that output.
func sideChannels(cfg *config.Config) (events.Publisher, history.Recorder, func()) {
	var pub events.Publisher = events.Noop{}
	if p, err := events.FromConfig(cfg.Events.NATS); err != nil {
		slog.Warn("Transition events disabled", logfields.Error(err))
	} else {
		pub = p
	}

	var hist history.Recorder = history.Noop{}
	if cfg.History.Enabled {
		if h, err := history.Open(cfg.History.Path); err != nil {
			slog.Warn("History disabled", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			hist = h
		}
	}

	return pub, hist, func() {
		if err := pub.Close(); err != nil {
			slog.Warn("Failed to close event publisher", logfields.Error(err))
		}
		if err := hist.Close(); err != nil {
			slog.Warn("Failed to close history", logfields.Error(err))
		}
	}
}

func newFetcher(cfg *config.Config) fetch.Fetcher {
	return fetch.NewHTTPFetcher(cfg.Fetch)
}

func writeTextfile(p *metrics.PrometheusRecorder, path string) {
	if p == nil || path == "" {
		return
	}
	if err := p.WriteTextfile(path); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

