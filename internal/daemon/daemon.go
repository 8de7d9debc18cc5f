// Package daemon implements watch mode: scheduled runs, configuration
// reload and the metrics endpoint.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/restockwatch/internal/logfields"
	"git.home.luguber.info/inful/restockwatch/internal/metrics"
	"git.home.luguber.info/inful/restockwatch/internal/monitor"
)

const jobName = "restock-check"

// Runner is one monitoring pass.
type Runner interface {
	Run(ctx context.Context) (*monitor.Report, error)
}

// RunnerFactory builds a Runner for a configuration. It is called at start
// and again on every reload.
type RunnerFactory func(cfg *config.Config) (Runner, error)

// LastRun is the outcome of the most recent run, served on /healthz.
type LastRun struct {
	RunID     string    `json:"run_id,omitempty"`
	Finished  time.Time `json:"finished"`
	Restocked int       `json:"restocked"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
}

// Daemon runs checks on a schedule until its context is canceled.
type Daemon struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string
	factory    RunnerFactory
	runner     Runner
	recorder   *metrics.PrometheusRecorder

	scheduler *Scheduler
	jobID     string
	baseCtx   context.Context

	// runMu serializes ticks across jobs; a reload replaces the job while
	// the old one may still be running.
	runMu sync.Mutex

	lastRun LastRun
	runs    int
}

// New builds a daemon. recorder may be nil when metrics are not configured.
func New(cfg *config.Config, configPath string, factory RunnerFactory, recorder *metrics.PrometheusRecorder) (*Daemon, error) {
	runner, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	sched, err := NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Daemon{
		cfg:        cfg,
		configPath: configPath,
		factory:    factory,
		runner:     runner,
		recorder:   recorder,
		scheduler:  sched,
	}, nil
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// LastRun returns the outcome of the most recent run.
func (d *Daemon) LastRun() LastRun {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastRun
}

// Runs returns how many runs have completed.
func (d *Daemon) Runs() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.runs
}

// Run schedules the check, starts the config watcher and the metrics server,
// and blocks until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.baseCtx = ctx
	cfg := d.cfg
	id, err := d.scheduler.Schedule(jobName, cfg.Watch, d.tick)
	if err != nil {
		d.mu.Unlock()
		return errors.WrapError(err, errors.CategoryDaemon, "schedule check").Fatal().Build()
	}
	d.jobID = id
	d.mu.Unlock()

	if d.configPath != "" {
		watcher, err := NewConfigWatcher(d.configPath, d)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			slog.Warn("Config reload disabled", logfields.Error(err))
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	var srv *http.Server
	if cfg.Metrics.Listen != "" && d.recorder != nil {
		srv = d.startHTTPServer(cfg.Metrics.Listen)
	}

	d.scheduler.Start()
	slog.Info("Watch mode started", logfields.Schedule(scheduleLabel(cfg.Watch)), slog.Int("targets", len(cfg.Targets)))

	<-ctx.Done()
	slog.Info("Watch mode stopping")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics server shutdown failed", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(); err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "stop scheduler").Build()
	}
	return nil
}

// ReloadConfig swaps in a new configuration. The runner is rebuilt first so
// an invalid configuration leaves the running one untouched. A changed
// schedule replaces the job, which runs a check immediately.
func (d *Daemon) ReloadConfig(ctx context.Context, cfg *config.Config) error {
	runner, err := d.factory(cfg)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.cfg
	d.cfg = cfg
	d.runner = runner

	if old.Metrics.Listen != cfg.Metrics.Listen {
		slog.Warn("metrics.listen changed; restart to apply", "old", old.Metrics.Listen, "new", cfg.Metrics.Listen)
	}
	if d.jobID == "" || old.Watch == cfg.Watch {
		return nil
	}
	if err := d.scheduler.Remove(d.jobID); err != nil {
		slog.Warn("Failed to remove previous job", logfields.Error(err))
	}
	id, err := d.scheduler.Schedule(jobName, cfg.Watch, d.tick)
	if err != nil {
		d.jobID = ""
		return errors.WrapError(err, errors.CategoryDaemon, "reschedule check").Build()
	}
	d.jobID = id
	return nil
}

// tick is the scheduled task. A tick that starts while another is running
// waits for it and then runs against the current configuration.
func (d *Daemon) tick() {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	d.mu.RLock()
	runner := d.runner
	ctx := d.baseCtx
	textfile := d.cfg.Metrics.Textfile
	d.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	report, err := runner.Run(ctx)
	last := LastRun{Finished: time.Now().UTC()}
	if report != nil {
		last.RunID = report.RunID
		last.Restocked = len(report.Restocked)
		last.Failed = len(report.Failed())
	}
	switch {
	case err == nil:
	case monitor.IsCanceled(err):
		slog.Info("Run canceled", logfields.RunID(last.RunID))
		last.Error = err.Error()
	default:
		slog.Error("Run failed", logfields.RunID(last.RunID), logfields.Error(err))
		last.Error = err.Error()
	}

	if textfile != "" && d.recorder != nil {
		if err := d.recorder.WriteTextfile(textfile); err != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(textfile), logfields.Error(err))
		}
	}

	d.mu.Lock()
	d.lastRun = last
	d.runs++
	d.mu.Unlock()
}

func scheduleLabel(w config.WatchConfig) string {
	if w.Cron != "" {
		return w.Cron
	}
	return w.Interval.String()
}
