// Package scheduler rebuilds an engine snapshot on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/engine"
	"github.com/rubiojr/itemsearch/pkg/log"
)

// Target is what the scheduler refreshes; *engine.Engine satisfies it.
type Target interface {
	Initialize(ctx context.Context, perms core.Permissions) (*engine.Snapshot, error)
}

type Config struct {
	// Interval between refreshes. Zero disables the scheduler.
	Interval time.Duration
	// Timeout bounds one refresh. Zero means no bound beyond the Start ctx.
	Timeout time.Duration
}

// NotifyFunc receives the outcome of every scheduled refresh that ran.
type NotifyFunc func(snap *engine.Snapshot, err error)

type Scheduler struct {
	config Config
	target Target
	perms  core.Permissions
	notify NotifyFunc
	logger *log.Logger

	ctxCancel context.CancelFunc
	stopCh    chan struct{}
	mu        sync.RWMutex
	wg        sync.WaitGroup
	running   bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithNotify(fn NotifyFunc) Option {
	return func(s *Scheduler) {
		s.notify = fn
	}
}

func New(config Config, target Target, perms core.Permissions, opts ...Option) *Scheduler {
	s := &Scheduler{
		config: config,
		target: target,
		perms:  perms,
		logger: log.ForService("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the refresh loop. The first refresh happens one interval
// after Start; callers initialize the target themselves.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.config.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", s.config.Interval)
	}

	var runCtx context.Context
	runCtx, s.ctxCancel = context.WithCancel(ctx)
	s.stopCh = make(chan struct{})
	s.running = true

	ticker := time.NewTicker(s.config.Interval)
	s.wg.Add(1)
	go s.run(runCtx, ticker)

	s.logger.Infof("refreshing every %v", s.config.Interval)
	return nil
}

func (s *Scheduler) run(ctx context.Context, ticker *time.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debugf("context cancelled")
			return
		case <-s.stopCh:
			s.logger.Debugf("stop signal received")
			return
		case <-ticker.C:
			if _, err := s.RefreshNow(ctx); err != nil {
				s.logger.Warnf("scheduled refresh failed: %v", err)
			}
		}
	}
}

// RefreshNow runs one refresh. A refresh that collides with one already in
// progress is skipped and reported as ErrInitializeInProgress without
// notifying.
func (s *Scheduler) RefreshNow(ctx context.Context) (*engine.Snapshot, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	snap, err := s.target.Initialize(ctx, s.perms)
	if errors.Is(err, engine.ErrInitializeInProgress) {
		s.logger.Debugf("refresh already in progress, skipping")
		return nil, err
	}
	if s.notify != nil {
		s.notify(snap, err)
	}
	return snap, err
}

// Stop ends the refresh loop and waits for a running refresh to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.ctxCancel()
	close(s.stopCh)
	s.running = false
	s.wg.Wait()
	s.logger.Debugf("stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
