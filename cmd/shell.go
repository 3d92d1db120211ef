package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/itemsearch/pkg/config"
	"github.com/rubiojr/itemsearch/pkg/engine"
	"github.com/rubiojr/itemsearch/pkg/gw2api"
	"github.com/rubiojr/itemsearch/pkg/log"
	"github.com/rubiojr/itemsearch/pkg/owned"
	"github.com/rubiojr/itemsearch/pkg/scheduler"
	"github.com/rubiojr/itemsearch/pkg/tui"
	"github.com/rubiojr/itemsearch/pkg/version"
	"github.com/urfave/cli/v3"
)

// reloadDebounce groups the burst of events a dump rewrite produces.
const reloadDebounce = 500 * time.Millisecond

// ShellCommand creates the shell command
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive search that updates as you type",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Refresh when files in dump_dir change",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runShell(ctx, c.String("config"), c.Bool("watch"))
		},
	}
}

func runShell(ctx context.Context, configPath string, watch bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	src, err := newAccountSource(cfg)
	if err != nil {
		return err
	}

	permCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout.Duration)
	perms, err := resolvePermissions(permCtx, cfg, src)
	cancel()
	if err != nil {
		return err
	}

	eng := engine.New(cat, src,
		engine.WithMinQueryLength(cfg.MinQueryLength),
		engine.WithAggregator(owned.NewAggregator(owned.WithConcurrency(cfg.FetchConcurrency))),
	)

	// Log lines would corrupt the alternate screen.
	log.SetOutput(logFileOrDiscard(cfg))

	p := tea.NewProgram(tui.New(tui.Options{
		Engine:       eng,
		Permissions:  perms,
		FetchTimeout: cfg.FetchTimeout.Duration,
		Version:      version.Version,
	}), tea.WithAltScreen(), tea.WithContext(ctx))

	if watch {
		dump, ok := src.(*gw2api.DumpFetcher)
		if !ok {
			return fmt.Errorf("--watch needs dump_dir to be set")
		}
		stop, err := watchDump(dump.Dir(), func(reason string) { p.Send(tui.ReloadMsg{Reason: reason}) })
		if err != nil {
			return err
		}
		defer stop()
	}

	if cfg.RefreshInterval.Duration > 0 {
		sched := scheduler.New(scheduler.Config{
			Interval: cfg.RefreshInterval.Duration,
			Timeout:  cfg.FetchTimeout.Duration,
		}, eng, perms, scheduler.WithNotify(func(_ *engine.Snapshot, err error) {
			p.Send(tui.RefreshDoneMsg{Err: err})
		}))
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	_, err = p.Run()
	return err
}

// watchDump calls reload after files in dir settle. The returned function
// stops watching.
func watchDump(dir string, reload func(reason string)) (func(), error) {
	logger := log.ForService("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating dump watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Infof("watching %s for changes", dir)

	done := make(chan struct{})
	go func() {
		var (
			timer   *time.Timer
			changed string
		)
		fire := make(chan struct{}, 1)
		for {
			select {
			case <-done:
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".json" {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				logger.Debugf("%s (event: %s)", event.Name, event.Op)
				changed = filepath.Base(event.Name)
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case <-fire:
				logger.Infof("%s changed, refreshing", changed)
				reload(changed + " changed")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("watcher error: %v", err)
			}
		}
	}()

	return func() {
		close(done)
		if err := watcher.Close(); err != nil {
			logger.Warnf("failed to close dump watcher: %v", err)
		}
	}, nil
}
