package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/daemon"
	"git.home.luguber.info/inful/restockwatch/internal/monitor"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct{}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if err := config.ValidateNotify(cfg); err != nil {
		return err
	}

	promRec := newPrometheus(cfg, true)
	// Event and history outputs are opened once; changing them needs a restart.
	pub, hist, closeAll := sideChannels(cfg)
	defer closeAll()

	factory := func(c *config.Config) (daemon.Runner, error) {
		notifier, err := newNotifier(c, false)
		if err != nil {
			return nil, err
		}
		return monitor.New(c, newFetcher(c), notifier,
			monitor.WithRecorder(recorderOf(promRec)),
			monitor.WithPublisher(pub),
			monitor.WithHistory(hist))
	}

	d, err := daemon.New(cfg, root.Config, factory, promRec)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("Starting watch mode", "config", root.Config)
	return d.Run(ctx)
}
