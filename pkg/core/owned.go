package core

// SourceKind tells where an owned item lives.
type SourceKind int

const (
	SourceBank SourceKind = iota
	SourceSharedInventory
	SourceMaterials
	SourceCharacterInventory
	SourceCharacterEquipment
	SourceTradingPostDelivery
	SourceTradingPostSell
)

var sourceNames = [...]string{
	SourceBank:                "bank",
	SourceSharedInventory:     "shared inventory",
	SourceMaterials:           "material storage",
	SourceCharacterInventory:  "character inventory",
	SourceCharacterEquipment:  "character equipment",
	SourceTradingPostDelivery: "trading post delivery",
	SourceTradingPostSell:     "trading post sell",
}

func (s SourceKind) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return "unknown"
	}
	return sourceNames[s]
}

// OwnedItem is a concrete stack held by the account.
//
// Instances are created fresh on every aggregation pass and are shared by
// pointer between all the keys they are registered under.
type OwnedItem struct {
	ItemID    int
	Count     int
	Charges   *int
	SkinID    int
	Infusions []int
	Upgrades  []int
	Source    SourceKind
	// Character is set for CharacterInventory and CharacterEquipment.
	Character string
}

// StackCount is the number shown on the item icon: the larger of the stack
// count and the charge count, each defaulting to 1.
func (o *OwnedItem) StackCount() int {
	n := o.Count
	if n < 1 {
		n = 1
	}
	if o.Charges != nil && *o.Charges > n {
		n = *o.Charges
	}
	return n
}

// Location describes the source for display, e.g. "character inventory (Zojja)".
func (o *OwnedItem) Location() string {
	if o.Character == "" {
		return o.Source.String()
	}
	return o.Source.String() + " (" + o.Character + ")"
}
