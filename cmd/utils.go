package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rubiojr/itemsearch/pkg/catalog"
	"github.com/rubiojr/itemsearch/pkg/config"
	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/engine"
	"github.com/rubiojr/itemsearch/pkg/gw2api"
	"github.com/rubiojr/itemsearch/pkg/owned"
)

var errNoAccount = errors.New("no account configured: set api_key or dump_dir in the config file")

// accountSource is an owned.Fetcher that can also describe its own key.
type accountSource interface {
	owned.Fetcher
	TokenInfo(ctx context.Context) (*gw2api.TokenInfo, error)
}

// openCatalog reads catalog_path when set, the sqlite catalog otherwise.
func openCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		cat, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		return cat, nil
	}

	store, err := catalog.OpenStore(cfg.CatalogDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening catalog store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Warning: failed to close catalog store: %v\n", err)
		}
	}()

	cat, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if cat.Len() == 0 {
		return nil, fmt.Errorf("catalog %s is empty, run 'itemsearch catalog import' first", cfg.CatalogDBPath())
	}
	return cat, nil
}

// newAccountSource prefers the offline dump over the live API.
func newAccountSource(cfg *config.Config) (accountSource, error) {
	if cfg.DumpDir != "" {
		return gw2api.NewDumpFetcher(cfg.DumpDir), nil
	}
	if cfg.APIKey == "" {
		return nil, errNoAccount
	}
	return gw2api.NewClient(cfg.APIURL, cfg.APIKey, gw2api.WithTimeout(cfg.FetchTimeout.Duration)), nil
}

// resolvePermissions uses the configured list when there is one, and asks
// the key otherwise.
func resolvePermissions(ctx context.Context, cfg *config.Config, src accountSource) (core.Permissions, error) {
	if perms := cfg.ConfiguredPermissions(); perms != nil {
		return perms, nil
	}
	info, err := src.TokenInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading token info: %w", err)
	}
	return info.Scopes(), nil
}

// setupEngine loads everything a search needs and runs the first
// Initialize.
func setupEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, accountSource, core.Permissions, error) {
	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	src, err := newAccountSource(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout.Duration)
	defer cancel()

	perms, err := resolvePermissions(fetchCtx, cfg, src)
	if err != nil {
		return nil, nil, nil, err
	}

	eng := engine.New(cat, src,
		engine.WithMinQueryLength(cfg.MinQueryLength),
		engine.WithAggregator(owned.NewAggregator(owned.WithConcurrency(cfg.FetchConcurrency))),
	)
	if _, err := eng.Initialize(fetchCtx, perms); err != nil {
		return nil, nil, nil, fmt.Errorf("initializing search engine: %w", err)
	}
	return eng, src, perms, nil
}

// logFileOrDiscard sends log lines to itemsearch.log in the storage dir.
func logFileOrDiscard(cfg *config.Config) io.Writer {
	f, err := os.OpenFile(filepath.Join(cfg.StorageDir, "itemsearch.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return io.Discard
	}
	return f
}
