package commands

import (
	"fmt"

	"git.home.luguber.info/inful/restockwatch/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	_, err := fmt.Fprintf(g.out(), "Wrote example configuration to %s\nSet TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID (or a .env file) before running check.\n", root.Config)
	return err
}
