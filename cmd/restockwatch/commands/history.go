package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"git.home.luguber.info/inful/restockwatch/internal/events"
	"git.home.luguber.info/inful/restockwatch/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit  int    `short:"n" default:"20" help:"Number of entries to show"`
	Target string `short:"t" help:"Only show entries for this target URL"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.History.Path); os.IsNotExist(err) {
		_, err = fmt.Fprintf(g.out(), "no history recorded at %s (history.enabled: %t)\n", cfg.History.Path, cfg.History.Enabled)
		return err
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(context.Background(), h.Limit, h.Target)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		_, err = fmt.Fprintln(g.out(), "no history entries")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(g.out())
	t.AppendHeader(table.Row{"Time", "Kind", "Change", "Target"})
	for _, e := range entries {
		change := "-"
		if e.Kind == string(events.KindTransition) {
			change = e.Previous + " -> " + e.Current
		}
		t.AppendRow(table.Row{e.Timestamp.Local().Format(time.RFC3339), e.Kind, change, e.Target})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
