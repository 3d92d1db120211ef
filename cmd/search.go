package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/itemsearch/pkg/config"
	"github.com/rubiojr/itemsearch/pkg/render"
	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Find owned items whose name contains the query",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "query",
				Aliases:  []string{"q"},
				Usage:    "Text to look for in item, skin, upgrade and infusion names",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results (0 for no limit)",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:  "no-pager",
				Usage: "Disable pager and output directly to terminal",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchItems(ctx, c.String("config"), c.String("query"), c.Int("limit"), c.Bool("no-pager"))
		},
	}
}

func searchItems(ctx context.Context, configPath, query string, limit int, noPager bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	eng, _, _, err := setupEngine(ctx, cfg)
	if err != nil {
		return err
	}

	items, err := eng.Search(query)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	output := render.Warnings(eng.Snapshot().Warnings) + render.NewService(eng.Lookup).Results(query, items)
	display(output, noPager)
	return nil
}
