package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/restockwatch/internal/availability"
	"git.home.luguber.info/inful/restockwatch/internal/fetch"
	"git.home.luguber.info/inful/restockwatch/internal/monitor"
	"git.home.luguber.info/inful/restockwatch/internal/notify"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	DryRun bool `help:"Log notifications instead of sending them and leave state, history and events untouched"`

	// fetcher and notifier replace the real clients when set.
	fetcher  fetch.Fetcher
	notifier notify.Notifier
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}

	notifier := c.notifier
	if notifier == nil {
		if notifier, err = newNotifier(cfg, c.DryRun); err != nil {
			return err
		}
	}
	fetcher := c.fetcher
	if fetcher == nil {
		fetcher = newFetcher(cfg)
	}

	promRec := newPrometheus(cfg, false)
	opts := []monitor.Option{monitor.WithRecorder(recorderOf(promRec))}
	if c.DryRun {
		opts = append(opts, monitor.WithoutPersistence())
	} else {
		pub, hist, closeAll := sideChannels(cfg)
		defer closeAll()
		opts = append(opts, monitor.WithPublisher(pub), monitor.WithHistory(hist))
	}

	runner, err := monitor.New(cfg, fetcher, notifier, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, runErr := runner.Run(ctx)
	writeTextfile(promRec, cfg.Metrics.Textfile)
	if report != nil {
		printReport(g.out(), report)
	}
	return runErr
}

func printReport(w io.Writer, r *monitor.Report) {
	for _, res := range r.Results {
		line := fmt.Sprintf("%-13s %s", availability.Label(res.Current), res.Target.Label())
		if res.Err != nil {
			line += "  (fetch failed, state kept)"
		}
		_, _ = fmt.Fprintln(w, line)
	}
	_, _ = fmt.Fprintf(w, "%d/%d available, %d restocked, %d failed", r.Available, r.Tracked, len(r.Restocked), len(r.Failed()))
	if r.HeartbeatSent {
		_, _ = fmt.Fprint(w, ", heartbeat sent")
	}
	_, _ = fmt.Fprintln(w)
}
