package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/restockwatch/cmd/restockwatch/commands"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/restockwatch/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Out: os.Stdout, Err: os.Stderr}

	ctx := kong.Parse(&cli,
		kong.Name("restockwatch"),
		kong.Description("Watch product pages and send a Telegram message when an item is back in stock."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := ctx.Run(global, &cli); err != nil {
		logger := global.Logger
		if logger == nil {
			logger = slog.Default()
		}
		errors.NewCLIErrorAdapter(cli.Verbose, logger).HandleError(err)
	}
}
