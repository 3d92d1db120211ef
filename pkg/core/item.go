package core

import "strings"

// Rarity is the item quality tier used for display.
type Rarity int

const (
	RarityUnknown Rarity = iota
	RarityJunk
	RarityBasic
	RarityFine
	RarityMasterwork
	RarityRare
	RarityExotic
	RarityAscended
	RarityLegendary
)

var rarityNames = [...]string{
	RarityUnknown:    "Unknown",
	RarityJunk:       "Junk",
	RarityBasic:      "Basic",
	RarityFine:       "Fine",
	RarityMasterwork: "Masterwork",
	RarityRare:       "Rare",
	RarityExotic:     "Exotic",
	RarityAscended:   "Ascended",
	RarityLegendary:  "Legendary",
}

func (r Rarity) String() string {
	if r < 0 || int(r) >= len(rarityNames) {
		return rarityNames[RarityUnknown]
	}
	return rarityNames[r]
}

// ParseRarity maps the API spelling ("Exotic", "exotic") to a Rarity.
// Unrecognized text yields RarityUnknown.
func ParseRarity(s string) Rarity {
	for i, name := range rarityNames {
		if strings.EqualFold(name, s) {
			return Rarity(i)
		}
	}
	return RarityUnknown
}

func (r Rarity) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rarity) UnmarshalText(text []byte) error {
	*r = ParseRarity(string(text))
	return nil
}

// CatalogEntry is one static item definition.
type CatalogEntry struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Rarity Rarity `json:"rarity"`
	Icon   string `json:"icon,omitempty"`
}
