package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"git.home.luguber.info/inful/restockwatch/internal/availability"
	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
)

// ClassifyCmd implements the 'classify' command.
type ClassifyCmd struct {
	Target string `short:"t" required:"" help:"Product page URL; selects the host rule set"`
	File   string `short:"f" help:"Classify a saved page instead of fetching the URL" type:"existingfile"`
}

func (c *ClassifyCmd) Run(g *Global, root *CLI) error {
	cfg, err := c.config(g, root)
	if err != nil {
		return err
	}
	router, err := availability.NewRouterFromConfig(cfg)
	if err != nil {
		return err
	}

	var content string
	if c.File != "" {
		data, err := os.ReadFile(c.File) // #nosec G304 -- operator supplied path
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "read page").WithContext("path", c.File).Build()
		}
		content = string(data)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Fetch.Timeout+5*time.Second)
		defer cancel()
		if content, err = newFetcher(cfg).Fetch(ctx, c.Target); err != nil {
			return err
		}
	}

	classifier, ruleSet := router.For(c.Target)
	st := classifier.Classify(content)
	_, err = fmt.Fprintf(g.out(), "%s\t%s\trules=%s\n", st, c.Target, ruleSet)
	return err
}

// config loads the configuration file when it exists and falls back to the
// built-in rule tables otherwise, so a page can be tested before setup.
func (c *ClassifyCmd) config(g *Global, root *CLI) (*config.Config, error) {
	if _, err := os.Stat(root.Config); err == nil {
		return loadConfig(g, root)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg, nil
}
