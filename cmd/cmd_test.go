package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rubiojr/itemsearch/pkg/catalog"
	"github.com/rubiojr/itemsearch/pkg/config"
	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/gw2api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cfg, err := config.GetDefaultConfig()
	require.NoError(t, err)
	return cfg
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestNewAccountSource(t *testing.T) {
	cfg := testConfig(t)

	_, err := newAccountSource(cfg)
	assert.ErrorIs(t, err, errNoAccount)

	cfg.APIKey = "secret"
	src, err := newAccountSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gw2api.Client{}, src)

	cfg.DumpDir = t.TempDir()
	src, err = newAccountSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gw2api.DumpFetcher{}, src)
}

func TestResolvePermissions(t *testing.T) {
	cfg := testConfig(t)
	cfg.DumpDir = t.TempDir()
	src, err := newAccountSource(cfg)
	require.NoError(t, err)

	_, err = resolvePermissions(context.Background(), cfg, src)
	assert.ErrorContains(t, err, "reading token info")

	writeFile(t, cfg.DumpDir, gw2api.FileTokenInfo, `{"id":"k","name":"main","permissions":["account","inventories"]}`)
	perms, err := resolvePermissions(context.Background(), cfg, src)
	require.NoError(t, err)
	assert.True(t, perms.Has(core.PermissionInventories))
	assert.False(t, perms.Has(core.PermissionTradingPost))

	cfg.Permissions = []string{"tradingpost"}
	perms, err = resolvePermissions(context.Background(), cfg, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"tradingpost"}, perms.Sorted())
}

func TestOpenCatalog(t *testing.T) {
	cfg := testConfig(t)

	_, err := openCatalog(context.Background(), cfg)
	assert.ErrorContains(t, err, "is empty")

	path := filepath.Join(t.TempDir(), "items.json.zst")
	require.NoError(t, catalog.WriteFile(path, []core.CatalogEntry{{ID: 19699, Name: "Iron Ore"}}))
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, cfg.SaveConfig(cfgPath))
	require.NoError(t, importCatalog(context.Background(), cfgPath, path))

	cat, err := openCatalog(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())

	cfg.CatalogPath = path
	cat, err = openCatalog(context.Background(), cfg)
	require.NoError(t, err)
	_, ok := cat.Lookup(19699)
	assert.True(t, ok)
}

func TestSetupEngineFromDump(t *testing.T) {
	cfg := testConfig(t)
	cfg.DumpDir = t.TempDir()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, catalog.WriteFile(cfg.CatalogPath, []core.CatalogEntry{
		{ID: 19699, Name: "Iron Ore"},
		{ID: 19683, Name: "Iron Ingot"},
	}))
	writeFile(t, cfg.DumpDir, gw2api.FileTokenInfo, `{"id":"k","name":"main","permissions":["inventories"]}`)
	writeFile(t, cfg.DumpDir, gw2api.FileBank, `[{"id":19699,"count":250},null]`)

	eng, _, perms, err := setupEngine(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, perms.Has(core.PermissionInventories))

	items, err := eng.Search("IRON")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 250, items[0].Count)
	// shared inventory, materials and characters are missing from the dump
	assert.Len(t, eng.Snapshot().Warnings, 3)
}

func TestInitConfig(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, initConfig(path, false))
	assert.FileExists(t, path)
	assert.ErrorContains(t, initConfig(path, false), "already exists")
	assert.NoError(t, initConfig(path, true))
}

func TestWatchDump(t *testing.T) {
	dir := t.TempDir()
	reloads := make(chan string, 4)
	stop, err := watchDump(dir, func(reason string) { reloads <- reason })
	require.NoError(t, err)
	defer stop()

	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, gw2api.FileBank, `[]`)

	select {
	case reason := <-reloads:
		assert.Equal(t, "bank.json changed", reason)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after bank.json changed")
	}
}

func TestWatchDumpMissingDir(t *testing.T) {
	_, err := watchDump(filepath.Join(t.TempDir(), "missing"), func(string) {})
	assert.Error(t, err)
}
