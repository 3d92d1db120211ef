package owned

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("503 service unavailable")

// fakeFetcher returns canned data; a non-nil error field makes that source fail.
type fakeFetcher struct {
	bank       []*core.ItemSlot
	bankErr    error
	shared     []*core.ItemSlot
	sharedErr  error
	mats       []core.MaterialSlot
	matsErr    error
	chars      []*core.Character
	charsErr   error
	box        *core.Delivery
	boxErr     error
	sells      []core.Listing
	sellsErr   error
	panicOnBox bool

	calls atomic.Int32
}

func (f *fakeFetcher) Bank(ctx context.Context) ([]*core.ItemSlot, error) {
	f.calls.Add(1)
	return f.bank, f.bankErr
}

func (f *fakeFetcher) SharedInventory(ctx context.Context) ([]*core.ItemSlot, error) {
	f.calls.Add(1)
	return f.shared, f.sharedErr
}

func (f *fakeFetcher) Materials(ctx context.Context) ([]core.MaterialSlot, error) {
	f.calls.Add(1)
	return f.mats, f.matsErr
}

func (f *fakeFetcher) Characters(ctx context.Context) ([]*core.Character, error) {
	f.calls.Add(1)
	return f.chars, f.charsErr
}

func (f *fakeFetcher) Delivery(ctx context.Context) (*core.Delivery, error) {
	f.calls.Add(1)
	if f.panicOnBox {
		panic("decoder exploded")
	}
	return f.box, f.boxErr
}

func (f *fakeFetcher) Sells(ctx context.Context) ([]core.Listing, error) {
	f.calls.Add(1)
	return f.sells, f.sellsErr
}

func intPtr(n int) *int { return &n }

func fullFetcher() *fakeFetcher {
	return &fakeFetcher{
		bank: []*core.ItemSlot{
			{ID: 19699, Count: 250},
			nil,
			{ID: 10, Count: 1, Skin: intPtr(20), Upgrades: []int{30}, Infusions: []int{40}},
		},
		shared: []*core.ItemSlot{{ID: 78599, Count: 1, Charges: intPtr(5)}},
		mats: []core.MaterialSlot{
			{ID: 19683, Category: 5, Count: 17},
			{ID: 19688, Category: 5, Count: 0},
		},
		chars: []*core.Character{
			{
				Name: "Zojja",
				Bags: []*core.Bag{
					{ID: 9574, Size: 20, Inventory: []*core.ItemSlot{{ID: 19699, Count: 3}, nil}},
					nil,
				},
				EquipmentTabs: []*core.EquipmentTab{
					{Tab: 1, Equipment: []*core.EquipmentItem{{ID: 30698, Slot: "WeaponA1", Skin: intPtr(4678)}, nil}},
				},
			},
		},
		box:   &core.Delivery{Coins: 100, Items: []core.DeliveredItem{{ID: 24615, Count: 2}}},
		sells: []core.Listing{{ID: 1, ItemID: 24618, Price: 500, Quantity: 4}},
	}
}

var allPerms = core.NewPermissions(core.PermissionInventories, core.PermissionTradingPost)

func TestAggregateAllSources(t *testing.T) {
	res := NewAggregator().Aggregate(context.Background(), fullFetcher(), allPerms)
	require.NotNil(t, res.Index)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Skipped)

	ore := res.Index.Get(19699)
	require.Len(t, ore, 2)
	assert.Equal(t, core.SourceBank, ore[0].Source)
	assert.Equal(t, 250, ore[0].Count)
	assert.Equal(t, core.SourceCharacterInventory, ore[1].Source)
	assert.Equal(t, "Zojja", ore[1].Character)

	bag := res.Index.Get(9574)
	require.Len(t, bag, 1)
	assert.Equal(t, core.SourceCharacterInventory, bag[0].Source)

	eq := res.Index.Get(4678)
	require.Len(t, eq, 1)
	assert.Equal(t, 30698, eq[0].ItemID)
	assert.Equal(t, core.SourceCharacterEquipment, eq[0].Source)
	assert.Equal(t, 1, eq[0].Count)

	shared := res.Index.Get(78599)
	require.Len(t, shared, 1)
	assert.Equal(t, 5, shared[0].StackCount())

	assert.Len(t, res.Index.Get(19683), 1)
	assert.Empty(t, res.Index.Get(19688), "zero-count materials are not owned")

	box := res.Index.Get(24615)
	require.Len(t, box, 1)
	assert.Equal(t, core.SourceTradingPostDelivery, box[0].Source)

	sell := res.Index.Get(24618)
	require.Len(t, sell, 1)
	assert.Equal(t, 4, sell[0].Count)
	assert.Equal(t, core.SourceTradingPostSell, sell[0].Source)

	assert.Equal(t, 6, res.Fetched)
	assert.Equal(t, 2, res.Counts[core.SourceBank])
	assert.Equal(t, 2, res.Counts[core.SourceCharacterInventory])
}

func TestMultiKeyAliasing(t *testing.T) {
	res := NewAggregator().Aggregate(context.Background(), fullFetcher(), allPerms)

	item := res.Index.Get(10)
	require.Len(t, item, 1)
	for _, key := range []int{20, 30, 40} {
		got := res.Index.Get(key)
		require.Len(t, got, 1, "key %d", key)
		assert.Same(t, item[0], got[0], "key %d", key)
	}
}

func TestPermissionGating(t *testing.T) {
	f := fullFetcher()
	res := NewAggregator().Aggregate(context.Background(), f, core.NewPermissions(core.PermissionTradingPost))

	for _, id := range []int{19699, 10, 78599, 19683, 9574, 30698} {
		assert.Empty(t, res.Index.Get(id), "inventory item %d leaked", id)
	}
	assert.Len(t, res.Index.Get(24615), 1)
	assert.Len(t, res.Index.Get(24618), 1)
	assert.Equal(t, []string{SourceBank, SourceSharedInventory, SourceMaterials, SourceCharacters}, res.Skipped)
	assert.Equal(t, int32(2), f.calls.Load(), "gated sources must not be fetched")
}

func TestNoPermissions(t *testing.T) {
	f := fullFetcher()
	res := NewAggregator().Aggregate(context.Background(), f, core.NewPermissions())
	assert.Equal(t, 0, res.Index.Instances())
	assert.Len(t, res.Skipped, 6)
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestPartialFailure(t *testing.T) {
	f := fullFetcher()
	f.matsErr = errUnavailable

	res := NewAggregator().Aggregate(context.Background(), f, allPerms)

	assert.Len(t, res.Index.Get(19699), 2)
	assert.Empty(t, res.Index.Get(19683))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, SourceMaterials, res.Warnings[0].Source)
	assert.ErrorIs(t, res.Warnings[0].Err, errUnavailable)
	assert.Equal(t, 5, res.Fetched)
}

func TestNilDataIsUnavailable(t *testing.T) {
	f := fullFetcher()
	f.bank = nil
	f.box = nil

	res := NewAggregator().Aggregate(context.Background(), f, allPerms)

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, SourceBank, res.Warnings[0].Source)
	assert.ErrorIs(t, res.Warnings[0].Err, ErrNoData)
	assert.Equal(t, SourceDelivery, res.Warnings[1].Source)
	assert.Len(t, res.Index.Get(19699), 1)
}

func TestMissingCharacterParts(t *testing.T) {
	f := fullFetcher()
	f.chars = append(f.chars, &core.Character{Name: "Taimi"}, nil)

	res := NewAggregator().Aggregate(context.Background(), f, allPerms)

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, "bags", res.Warnings[0].Source)
	assert.Equal(t, "Taimi", res.Warnings[0].Character)
	assert.Equal(t, "equipment", res.Warnings[1].Source)
	assert.Equal(t, "bags of Taimi unavailable: no data returned", res.Warnings[0].String())
	assert.Len(t, res.Index.Get(9574), 1, "other characters still folded")
}

func TestFetcherPanicIsContained(t *testing.T) {
	f := fullFetcher()
	f.panicOnBox = true

	res := NewAggregator(WithConcurrency(1)).Aggregate(context.Background(), f, allPerms)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, SourceDelivery, res.Warnings[0].Source)
	assert.Contains(t, res.Warnings[0].Err.Error(), "decoder exploded")
	assert.Len(t, res.Index.Get(24618), 1)
}

func TestCancelledContextDegrades(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := fullFetcher()
	res := NewAggregator().Aggregate(ctx, f, allPerms)

	require.NotNil(t, res.Index)
	assert.Equal(t, 0, res.Fetched)
	assert.Len(t, res.Warnings, 6)
	for _, w := range res.Warnings {
		assert.ErrorIs(t, w.Err, context.Canceled)
	}
}

func TestInsertionOrderFollowsSources(t *testing.T) {
	f := &fakeFetcher{
		bank:   []*core.ItemSlot{{ID: 1, Count: 1}},
		shared: []*core.ItemSlot{{ID: 1, Count: 2}},
		mats:   []core.MaterialSlot{{ID: 1, Count: 3}},
		chars: []*core.Character{{
			Name:          "A",
			Bags:          []*core.Bag{{ID: 2, Inventory: []*core.ItemSlot{{ID: 1, Count: 4}}}},
			EquipmentTabs: []*core.EquipmentTab{},
		}},
		box:   &core.Delivery{Items: []core.DeliveredItem{{ID: 1, Count: 5}}},
		sells: []core.Listing{{ItemID: 1, Quantity: 6}},
	}

	for run := 0; run < 20; run++ {
		res := NewAggregator(WithConcurrency(6)).Aggregate(context.Background(), f, allPerms)
		items := res.Index.Get(1)
		require.Len(t, items, 6)
		for i, it := range items {
			assert.Equal(t, i+1, it.Count)
		}
	}
}

func TestIndexRegister(t *testing.T) {
	x := NewIndex()
	item := &core.OwnedItem{ItemID: 10, SkinID: 20, Upgrades: []int{30}}
	x.Register(item)
	x.Register(&core.OwnedItem{ItemID: 10, SkinID: -1})

	assert.Len(t, x.Get(10), 2)
	assert.Same(t, item, x.Get(20)[0])
	assert.Same(t, item, x.Get(30)[0])
	assert.Empty(t, x.Get(-1))
	assert.Equal(t, 3, x.Keys())
	assert.Equal(t, 2, x.Instances())

	var missing *Index
	assert.Nil(t, missing.Get(10))
}

func TestRegisterSkipsNonPositiveAliases(t *testing.T) {
	x := NewIndex()
	item := &core.OwnedItem{ItemID: 10, SkinID: 0, Upgrades: []int{0, 30, -2}, Infusions: []int{-1, 40}}
	x.Register(item)

	assert.Empty(t, x.Get(0))
	assert.Empty(t, x.Get(-1))
	assert.Empty(t, x.Get(-2))
	assert.Same(t, item, x.Get(30)[0])
	assert.Same(t, item, x.Get(40)[0])
	assert.Equal(t, 3, x.Keys())
}
