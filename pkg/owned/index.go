package owned

import "github.com/rubiojr/itemsearch/pkg/core"

// Index maps an item, skin, infusion or upgrade id to the owned instances that
// reference it. Lists keep insertion order and may hold the same instance
// more than once if it was added twice under one key.
type Index struct {
	items     map[int][]*core.OwnedItem
	instances int
}

func NewIndex() *Index {
	return &Index{items: make(map[int][]*core.OwnedItem)}
}

// Add appends item to the list under key.
func (x *Index) Add(key int, item *core.OwnedItem) {
	x.items[key] = append(x.items[key], item)
}

// Register adds item under its own id and under each positive skin,
// infusion and upgrade id.
func (x *Index) Register(item *core.OwnedItem) {
	x.instances++
	x.Add(item.ItemID, item)
	if item.SkinID > 0 {
		x.Add(item.SkinID, item)
	}
	for _, id := range item.Infusions {
		if id > 0 {
			x.Add(id, item)
		}
	}
	for _, id := range item.Upgrades {
		if id > 0 {
			x.Add(id, item)
		}
	}
}

// Get returns the instances under key. The slice belongs to the index and
// must not be modified.
func (x *Index) Get(key int) []*core.OwnedItem {
	if x == nil {
		return nil
	}
	return x.items[key]
}

// Keys is the number of distinct keys.
func (x *Index) Keys() int {
	if x == nil {
		return 0
	}
	return len(x.items)
}

// Instances is the number of registered instances.
func (x *Index) Instances() int {
	if x == nil {
		return 0
	}
	return x.instances
}
