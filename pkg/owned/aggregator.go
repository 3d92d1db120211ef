package owned

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoData is recorded when a fetcher returns neither data nor an error.
var ErrNoData = errors.New("no data returned")

// Source names used in warnings and logs.
const (
	SourceBank            = "bank"
	SourceSharedInventory = "shared inventory"
	SourceMaterials       = "materials"
	SourceCharacters      = "characters"
	SourceDelivery        = "trading post delivery"
	SourceSells           = "trading post sells"
)

// Warning records a source, or a part of one, that contributed nothing.
type Warning struct {
	Source    string
	Character string
	Err       error
}

func (w Warning) String() string {
	if w.Character != "" {
		return fmt.Sprintf("%s of %s unavailable: %v", w.Source, w.Character, w.Err)
	}
	return fmt.Sprintf("%s unavailable: %v", w.Source, w.Err)
}

// Result is the outcome of one aggregation pass. It always carries an index,
// possibly empty.
type Result struct {
	Index    *Index
	Warnings []Warning
	// Skipped lists the sources not fetched for lack of permission.
	Skipped []string
	// Counts is the number of instances registered per source kind.
	Counts map[core.SourceKind]int
	// Fetched is the number of sources that answered and were folded.
	Fetched int
}

type foldFunc func(*folder)

type source struct {
	name  string
	perm  core.Permission
	fetch func(context.Context, Fetcher) (foldFunc, error)
}

// sources are folded in this order whatever order the fetches complete in.
var sources = []source{
	{
		name: SourceBank,
		perm: core.PermissionInventories,
		fetch: func(ctx context.Context, f Fetcher) (foldFunc, error) {
			slots, err := f.Bank(ctx)
			if err == nil && slots == nil {
				err = ErrNoData
			}
			return func(fo *folder) { fo.slots(slots, core.SourceBank, "") }, err
		},
	},
	{
		name: SourceSharedInventory,
		perm: core.PermissionInventories,
		fetch: func(ctx context.Context, f Fetcher) (foldFunc, error) {
			slots, err := f.SharedInventory(ctx)
			if err == nil && slots == nil {
				err = ErrNoData
			}
			return func(fo *folder) { fo.slots(slots, core.SourceSharedInventory, "") }, err
		},
	},
	{
		name: SourceMaterials,
		perm: core.PermissionInventories,
		fetch: func(ctx context.Context, f Fetcher) (foldFunc, error) {
			mats, err := f.Materials(ctx)
			if err == nil && mats == nil {
				err = ErrNoData
			}
			return func(fo *folder) { fo.materials(mats) }, err
		},
	},
	{
		name: SourceCharacters,
		perm: core.PermissionInventories,
		fetch: func(ctx context.Context, f Fetcher) (foldFunc, error) {
			chars, err := f.Characters(ctx)
			if err == nil && chars == nil {
				err = ErrNoData
			}
			return func(fo *folder) { fo.characters(chars) }, err
		},
	},
	{
		name: SourceDelivery,
		perm: core.PermissionTradingPost,
		fetch: func(ctx context.Context, f Fetcher) (foldFunc, error) {
			box, err := f.Delivery(ctx)
			if err == nil && box == nil {
				err = ErrNoData
			}
			return func(fo *folder) { fo.delivery(box) }, err
		},
	},
	{
		name: SourceSells,
		perm: core.PermissionTradingPost,
		fetch: func(ctx context.Context, f Fetcher) (foldFunc, error) {
			listings, err := f.Sells(ctx)
			if err == nil && listings == nil {
				err = ErrNoData
			}
			return func(fo *folder) { fo.sells(listings) }, err
		},
	},
}

// Aggregator folds account sources into an Index.
type Aggregator struct {
	concurrency int
	logger      *log.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency bounds how many sources are fetched at once. Values below
// one fetch sequentially.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n < 1 {
			n = 1
		}
		a.concurrency = n
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		concurrency: 4,
		logger:      log.ForService("aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate fetches every source allowed by perms and folds the ones that
// succeeded. It never fails: unavailable sources, including those cut short
// by ctx, end up in Result.Warnings.
func (a *Aggregator) Aggregate(ctx context.Context, f Fetcher, perms core.Permissions) *Result {
	start := time.Now()
	res := &Result{
		Index:  NewIndex(),
		Counts: make(map[core.SourceKind]int),
	}

	var active []source
	for _, s := range sources {
		if perms.Has(s.perm) {
			active = append(active, s)
			continue
		}
		res.Skipped = append(res.Skipped, s.name)
		a.logger.Debugf("skipping %s: missing %q permission", s.name, s.perm)
	}

	folds := make([]foldFunc, len(active))
	errs := make([]error, len(active))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, s := range active {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			folds[i], errs[i] = a.fetch(ctx, f, s)
			return nil
		})
	}
	_ = g.Wait()

	fo := &folder{result: res, logger: a.logger}
	for i, s := range active {
		if errs[i] != nil {
			fo.warn(Warning{Source: s.name, Err: errs[i]})
			continue
		}
		folds[i](fo)
		res.Fetched++
	}

	a.logger.Since("aggregation", start)
	a.logger.Infof("registered %d owned items under %d keys (%d warnings)",
		res.Index.Instances(), res.Index.Keys(), len(res.Warnings))
	return res
}

func (a *Aggregator) fetch(ctx context.Context, f Fetcher, s source) (fold foldFunc, err error) {
	defer func() {
		if r := recover(); r != nil {
			fold, err = nil, fmt.Errorf("fetcher panic: %v", r)
		}
	}()
	return s.fetch(ctx, f)
}

// folder turns raw records into OwnedItems, in encounter order.
type folder struct {
	result *Result
	logger *log.Logger
}

func (fo *folder) warn(w Warning) {
	fo.result.Warnings = append(fo.result.Warnings, w)
	fo.logger.Warnf("%s", w)
}

func (fo *folder) register(item *core.OwnedItem) {
	if item.ItemID <= 0 {
		return
	}
	if item.Count < 1 {
		item.Count = 1
	}
	fo.result.Index.Register(item)
	fo.result.Counts[item.Source]++
}

func (fo *folder) slot(slot *core.ItemSlot, kind core.SourceKind, character string) {
	if slot == nil {
		return
	}
	item := &core.OwnedItem{
		ItemID:    slot.ID,
		Count:     slot.Count,
		Charges:   slot.Charges,
		Infusions: slot.Infusions,
		Upgrades:  slot.Upgrades,
		Source:    kind,
		Character: character,
	}
	if slot.Skin != nil {
		item.SkinID = *slot.Skin
	}
	fo.register(item)
}

func (fo *folder) slots(slots []*core.ItemSlot, kind core.SourceKind, character string) {
	for _, s := range slots {
		fo.slot(s, kind, character)
	}
}

func (fo *folder) materials(mats []core.MaterialSlot) {
	for _, m := range mats {
		if m.Count <= 0 {
			continue
		}
		fo.register(&core.OwnedItem{ItemID: m.ID, Count: m.Count, Source: core.SourceMaterials})
	}
}

func (fo *folder) characters(chars []*core.Character) {
	for _, c := range chars {
		if c == nil {
			continue
		}
		if c.Bags == nil {
			fo.warn(Warning{Source: "bags", Character: c.Name, Err: ErrNoData})
		}
		for _, bag := range c.Bags {
			if bag == nil {
				continue
			}
			fo.register(&core.OwnedItem{
				ItemID:    bag.ID,
				Count:     1,
				Source:    core.SourceCharacterInventory,
				Character: c.Name,
			})
			fo.slots(bag.Inventory, core.SourceCharacterInventory, c.Name)
		}

		if c.EquipmentTabs == nil {
			fo.warn(Warning{Source: "equipment", Character: c.Name, Err: ErrNoData})
		}
		for _, tab := range c.EquipmentTabs {
			if tab == nil {
				continue
			}
			for _, eq := range tab.Equipment {
				if eq == nil {
					continue
				}
				item := &core.OwnedItem{
					ItemID:    eq.ID,
					Count:     eq.Count,
					Charges:   eq.Charges,
					Infusions: eq.Infusions,
					Upgrades:  eq.Upgrades,
					Source:    core.SourceCharacterEquipment,
					Character: c.Name,
				}
				if eq.Skin != nil {
					item.SkinID = *eq.Skin
				}
				fo.register(item)
			}
		}
	}
}

func (fo *folder) delivery(box *core.Delivery) {
	for _, it := range box.Items {
		fo.register(&core.OwnedItem{ItemID: it.ID, Count: it.Count, Source: core.SourceTradingPostDelivery})
	}
}

func (fo *folder) sells(listings []core.Listing) {
	for _, l := range listings {
		fo.register(&core.OwnedItem{ItemID: l.ItemID, Count: l.Quantity, Source: core.SourceTradingPostSell})
	}
}
