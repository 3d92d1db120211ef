package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/itemsearch/pkg/catalog"
	"github.com/rubiojr/itemsearch/pkg/config"
	"github.com/rubiojr/itemsearch/pkg/render"
	"github.com/urfave/cli/v3"
)

// CatalogCommand creates the catalog command
func CatalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Manage the item catalog",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a catalog file (.json or .json.zst) into the catalog database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Catalog file to import",
						Required: true,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return importCatalog(ctx, c.String("config"), c.String("file"))
				},
			},
			{
				Name:  "export",
				Usage: "Write the catalog database to a file (.json or .json.zst)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Destination file",
						Required: true,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return exportCatalog(ctx, c.String("config"), c.String("file"))
				},
			},
			{
				Name:  "stats",
				Usage: "Show catalog statistics",
				Action: func(ctx context.Context, c *cli.Command) error {
					return catalogStats(ctx, c.String("config"))
				},
			},
		},
	}
}

func withStore(configPath string, fn func(cfg *config.Config, store *catalog.Store) error) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := catalog.OpenStore(cfg.CatalogDBPath())
	if err != nil {
		return fmt.Errorf("opening catalog store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Warning: failed to close catalog store: %v\n", err)
		}
	}()

	return fn(cfg, store)
}

func importCatalog(ctx context.Context, configPath, file string) error {
	return withStore(configPath, func(cfg *config.Config, store *catalog.Store) error {
		cat, err := catalog.LoadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		if err := store.Save(ctx, cat.Entries()); err != nil {
			return fmt.Errorf("saving catalog: %w", err)
		}
		fmt.Printf("Imported %s items into %s\n", render.FormatNumber(cat.Len()), cfg.CatalogDBPath())
		return nil
	})
}

func exportCatalog(ctx context.Context, configPath, file string) error {
	return withStore(configPath, func(cfg *config.Config, store *catalog.Store) error {
		cat, err := store.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		if err := catalog.WriteFile(file, cat.Entries()); err != nil {
			return fmt.Errorf("writing %s: %w", file, err)
		}
		fmt.Printf("Exported %s items to %s\n", render.FormatNumber(cat.Len()), file)
		return nil
	})
}

func catalogStats(ctx context.Context, configPath string) error {
	return withStore(configPath, func(cfg *config.Config, store *catalog.Store) error {
		cat, err := store.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		fmt.Print(render.CatalogStats(cfg.CatalogDBPath(), cat))
		return nil
	})
}
