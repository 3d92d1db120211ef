package core

// Raw account records, in the shape the account endpoints return them. Slots
// that hold nothing come back as JSON null and decode to nil pointers.

// ItemSlot is a bank, shared inventory or bag slot.
type ItemSlot struct {
	ID        int    `json:"id"`
	Count     int    `json:"count"`
	Charges   *int   `json:"charges,omitempty"`
	Skin      *int   `json:"skin,omitempty"`
	Upgrades  []int  `json:"upgrades,omitempty"`
	Infusions []int  `json:"infusions,omitempty"`
	Binding   string `json:"binding,omitempty"`
	BoundTo   string `json:"bound_to,omitempty"`
}

// MaterialSlot is one material storage entry. Every known material is listed,
// owned or not.
type MaterialSlot struct {
	ID       int    `json:"id"`
	Category int    `json:"category"`
	Count    int    `json:"count"`
	Binding  string `json:"binding,omitempty"`
}

// Bag is a character bag; the bag is an item itself.
type Bag struct {
	ID        int         `json:"id"`
	Size      int         `json:"size"`
	Inventory []*ItemSlot `json:"inventory"`
}

// EquipmentItem is an item equipped on a character.
type EquipmentItem struct {
	ID        int    `json:"id"`
	Slot      string `json:"slot,omitempty"`
	Count     int    `json:"count,omitempty"`
	Charges   *int   `json:"charges,omitempty"`
	Skin      *int   `json:"skin,omitempty"`
	Upgrades  []int  `json:"upgrades,omitempty"`
	Infusions []int  `json:"infusions,omitempty"`
	Location  string `json:"location,omitempty"`
}

// EquipmentTab is one equipment template of a character.
type EquipmentTab struct {
	Tab       int              `json:"tab"`
	Name      string           `json:"name"`
	IsActive  bool             `json:"is_active"`
	Equipment []*EquipmentItem `json:"equipment"`
}

// Character carries the parts of a character used for item lookup. Bags or
// EquipmentTabs are nil when the API did not return them.
type Character struct {
	Name          string          `json:"name"`
	Bags          []*Bag          `json:"bags"`
	EquipmentTabs []*EquipmentTab `json:"equipment_tabs"`
}

// DeliveredItem is an item waiting in the trading post delivery box.
type DeliveredItem struct {
	ID    int `json:"id"`
	Count int `json:"count"`
}

// Delivery is the trading post delivery box.
type Delivery struct {
	Coins int             `json:"coins"`
	Items []DeliveredItem `json:"items"`
}

// Listing is a pending trading post sell order.
type Listing struct {
	ID       int    `json:"id"`
	ItemID   int    `json:"item_id"`
	Price    int    `json:"price"`
	Quantity int    `json:"quantity"`
	Created  string `json:"created,omitempty"`
}
