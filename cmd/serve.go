package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rubiojr/itemsearch/pkg/api"
	"github.com/rubiojr/itemsearch/pkg/config"
	"github.com/rubiojr/itemsearch/pkg/engine"
	"github.com/rubiojr/itemsearch/pkg/gw2api"
	"github.com/rubiojr/itemsearch/pkg/log"
	"github.com/rubiojr/itemsearch/pkg/realtime"
	"github.com/rubiojr/itemsearch/pkg/scheduler"
	"github.com/urfave/cli/v3"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the search API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on",
				Value: "127.0.0.1:8080",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Refresh when files in dump_dir change",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"), c.Bool("watch"))
		},
	}
}

func serve(ctx context.Context, configPath, listen string, watch bool) error {
	logger := log.ForService("serve")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, src, perms, err := setupEngine(ctx, cfg)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(0)
	sched := scheduler.New(scheduler.Config{
		Interval: cfg.RefreshInterval.Duration,
		Timeout:  cfg.FetchTimeout.Duration,
	}, eng, perms, scheduler.WithNotify(func(snap *engine.Snapshot, err error) {
		hub.Broadcast(realtime.RefreshEvent(snap, err))
	}))
	if cfg.RefreshInterval.Duration > 0 {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if watch {
		dump, ok := src.(*gw2api.DumpFetcher)
		if !ok {
			return fmt.Errorf("--watch needs dump_dir to be set")
		}
		stopWatch, err := watchDump(dump.Dir(), func(reason string) {
			if _, err := sched.RefreshNow(ctx); err != nil {
				logger.Warnf("refresh after %s: %v", reason, err)
			}
		})
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	mux := http.NewServeMux()
	api.NewServer(eng, sched, hub, api.WithRefreshTimeout(cfg.FetchTimeout.Duration)).RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              listen,
		Handler:           api.CorsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on http://%s", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
