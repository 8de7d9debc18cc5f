package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"git.home.luguber.info/inful/restockwatch/internal/availability"
	"git.home.luguber.info/inful/restockwatch/internal/state"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct{}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	store := state.Load(cfg.State.Path)

	t := table.NewWriter()
	t.SetOutputMirror(g.out())
	t.AppendHeader(table.Row{"State", "Target", "Note"})
	configured := make(map[string]bool, len(cfg.Targets))
	for _, target := range cfg.Targets {
		configured[target.URL] = true
		t.AppendRow(table.Row{availability.Label(store.Get(target.URL)), target.Label(), ""})
	}
	for _, key := range store.Targets() {
		if !configured[key] {
			t.AppendRow(table.Row{availability.Label(store.Get(key)), key, "no longer configured"})
		}
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	heartbeat := "never"
	if ts, ok := store.LastHeartbeat().Get(); ok {
		heartbeat = ts.Local().Format(time.RFC3339)
	}
	_, err = fmt.Fprintf(g.out(), "\n%d/%d available, last heartbeat: %s\n",
		store.CountAvailable(cfg.TargetURLs()), len(cfg.Targets), heartbeat)
	return err
}
