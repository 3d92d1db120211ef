// Package engine answers "which of my items have a name containing this
// text".
//
// An Engine combines the substring index over the static catalog with the
// owned-item index built from the account. Both are built by Initialize and
// published together as an immutable Snapshot, so a search always sees a
// consistent pair even while a refresh is running:
//
//	eng := engine.New(cat, fetcher)
//	if _, err := eng.Initialize(ctx, perms); err != nil {
//		return err
//	}
//	items, err := eng.Search("iron")
//
// UI loops that must not block use Start, which runs Initialize in the
// background and reports on a channel.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rubiojr/itemsearch/pkg/catalog"
	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/index"
	"github.com/rubiojr/itemsearch/pkg/log"
	"github.com/rubiojr/itemsearch/pkg/owned"
)

// DefaultMinQueryLength is the shortest query, in characters, that is
// looked up.
const DefaultMinQueryLength = 3

var (
	// ErrNotReady is returned by Search before the first Initialize completes.
	ErrNotReady = errors.New("search engine is not ready")
	// ErrInitializeInProgress is returned when Initialize is called while
	// another Initialize on the same engine is still running.
	ErrInitializeInProgress = errors.New("search engine initialization already in progress")
)

// State is the engine lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// Snapshot is one published pair of indexes. It is never modified.
type Snapshot struct {
	ID       string
	Names    *index.Index
	Owned    *owned.Index
	Warnings []owned.Warning
	BuiltAt  time.Time
}

// Engine is safe for concurrent use.
type Engine struct {
	catalog    *catalog.Catalog
	fetcher    owned.Fetcher
	aggregator *owned.Aggregator
	minQuery   int
	logger     *log.Logger

	snapshot atomic.Pointer[Snapshot]
	building atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinQueryLength sets the shortest accepted query. Values below one
// accept any non-empty query.
func WithMinQueryLength(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.minQuery = n
	}
}

func WithAggregator(a *owned.Aggregator) Option {
	return func(e *Engine) {
		if a != nil {
			e.aggregator = a
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine over cat, reading account data through fetcher.
func New(cat *catalog.Catalog, fetcher owned.Fetcher, opts ...Option) *Engine {
	e := &Engine{
		catalog:  cat,
		fetcher:  fetcher,
		minQuery: DefaultMinQueryLength,
		logger:   log.ForService("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.aggregator == nil {
		e.aggregator = owned.NewAggregator()
	}
	return e
}

// State reports the lifecycle state. An engine refreshing an already
// published snapshot stays Ready.
func (e *Engine) State() State {
	if e.snapshot.Load() != nil {
		return StateReady
	}
	if e.building.Load() {
		return StateInitializing
	}
	return StateUninitialized
}

// Snapshot returns the published snapshot, or nil before the first
// Initialize completes.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// MinQueryLength is the shortest query Search looks up.
func (e *Engine) MinQueryLength() int {
	return e.minQuery
}

// Lookup returns the catalog entry for id.
func (e *Engine) Lookup(id int) (core.CatalogEntry, bool) {
	return e.catalog.Lookup(id)
}

// Initialize builds the name index and aggregates owned items concurrently,
// then publishes both at once. Only one Initialize runs at a time; a second
// call fails with ErrInitializeInProgress. If ctx ends during aggregation the
// sources fetched so far are still published; if none answered, the current
// snapshot is kept and ctx's error is returned.
func (e *Engine) Initialize(ctx context.Context, perms core.Permissions) (*Snapshot, error) {
	if !e.building.CompareAndSwap(false, true) {
		return nil, ErrInitializeInProgress
	}
	defer e.building.Store(false)

	start := time.Now()
	e.logger.Infof("initializing with permissions: %s", perms)

	var (
		names  *index.Index
		result *owned.Result
		wg     sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		names = e.buildNames()
	}()
	go func() {
		defer wg.Done()
		result = e.aggregator.Aggregate(ctx, e.fetcher, perms)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil && result.Fetched == 0 {
		e.logger.Warnf("initialize cut short before any source answered, keeping the current snapshot: %v", err)
		return nil, err
	}

	snap := &Snapshot{
		ID:       uuid.NewString(),
		Names:    names,
		Owned:    result.Index,
		Warnings: result.Warnings,
		BuiltAt:  time.Now(),
	}
	e.snapshot.Store(snap)

	e.logger.Since("initialize", start)
	e.logger.Infof("snapshot %s ready: %d names, %d owned items, %d warnings",
		snap.ID, names.Len(), snap.Owned.Instances(), len(snap.Warnings))
	return snap, nil
}

func (e *Engine) buildNames() *index.Index {
	defer e.logger.Since("index build", time.Now())

	entries := e.catalog.Entries()
	pairs := make([]index.Entry, len(entries))
	for i, ce := range entries {
		pairs[i] = index.Entry{ID: ce.ID, Name: ce.Name}
	}
	return index.Build(pairs)
}

// Start runs Initialize in the background. The channel receives the result
// of Initialize (nil on success) and is then closed.
func (e *Engine) Start(ctx context.Context, perms core.Permissions) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := e.Initialize(ctx, perms)
		done <- err
	}()
	return done
}

// Normalize trims and case-folds a query the way Search does.
func Normalize(query string) string {
	return index.Fold(strings.TrimSpace(query))
}

// Search returns every owned instance whose item, skin, infusion or upgrade
// name contains query. Matching ids are visited in ascending order and each
// contributes its instances in aggregation order. An instance reachable
// through several matching ids appears once per id.
//
// A query shorter than the minimum length yields an empty result and no
// error. Before the first Initialize completes Search returns ErrNotReady.
func (e *Engine) Search(query string) ([]*core.OwnedItem, error) {
	_, items, err := e.SearchSnapshot(query)
	return items, err
}

// SearchSnapshot is Search that also returns the snapshot the results came
// from.
func (e *Engine) SearchSnapshot(query string) (*Snapshot, []*core.OwnedItem, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, nil, ErrNotReady
	}

	q := Normalize(query)
	if utf8.RuneCountInString(q) < e.minQuery {
		e.logger.Debugf("query %q below minimum length %d", query, e.minQuery)
		return snap, nil, nil
	}

	start := time.Now()
	ids := snap.Names.Query(q)
	var items []*core.OwnedItem
	for _, id := range ids {
		items = append(items, snap.Owned.Get(id)...)
	}
	e.logger.Debugf("query %q: %d catalog matches, %d owned in %s",
		q, len(ids), len(items), time.Since(start).Round(time.Microsecond))
	return snap, items, nil
}
