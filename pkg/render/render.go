// Package render turns owned items and catalog data into terminal text.
//
// Output is styled with lipgloss and degrades to plain text when the
// terminal has no color support, so the same strings serve the search
// command, the interactive shell and tests.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rubiojr/itemsearch/pkg/catalog"
	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/owned"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LookupFunc resolves a catalog id.
type LookupFunc func(id int) (core.CatalogEntry, bool)

// Service renders items with names resolved through a lookup function.
type Service struct {
	lookup LookupFunc
}

// NewService creates a Service. lookup may be nil, in which case every item
// is shown by id.
func NewService(lookup LookupFunc) *Service {
	if lookup == nil {
		lookup = func(int) (core.CatalogEntry, bool) { return core.CatalogEntry{}, false }
	}
	return &Service{lookup: lookup}
}

// FormatNumber formats a number with K/M suffixes for readability
func FormatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// Name returns the display name and rarity of id.
func (s *Service) Name(id int) (string, core.Rarity) {
	if e, ok := s.lookup(id); ok {
		return e.Name, e.Rarity
	}
	return fmt.Sprintf("item #%d", id), core.RarityUnknown
}

// Item renders one owned instance on a single line.
func (s *Service) Item(item *core.OwnedItem) string {
	name, rarity := s.Name(item.ItemID)
	var line strings.Builder
	line.WriteString(countStyle.Render(fmt.Sprintf("%dx", item.StackCount())))
	line.WriteString("  ")
	line.WriteString(RarityStyle(rarity).Render(name))

	var extras []string
	if item.SkinID > 0 {
		skin, _ := s.Name(item.SkinID)
		extras = append(extras, "skin: "+skin)
	}
	for _, id := range item.Upgrades {
		up, _ := s.Name(id)
		extras = append(extras, "upgrade: "+up)
	}
	for _, id := range item.Infusions {
		inf, _ := s.Name(id)
		extras = append(extras, "infusion: "+inf)
	}
	if len(extras) > 0 {
		line.WriteString(" (" + strings.Join(extras, ", ") + ")")
	}

	line.WriteString("  ")
	line.WriteString(MetaStyle.Render(cases.Title(language.English).String(item.Source.String())))
	if item.Character != "" {
		line.WriteString(MetaStyle.Render(" (" + item.Character + ")"))
	}
	return line.String()
}

// Items renders one line per instance and a closing summary.
func (s *Service) Items(items []*core.OwnedItem) string {
	if len(items) == 0 {
		return noDataStyle.Render("No owned items found.") + "\n"
	}

	var output strings.Builder
	total := 0
	for _, item := range items {
		total += item.StackCount()
		output.WriteString(s.Item(item))
		output.WriteString("\n")
	}
	output.WriteString(summaryStyle.Render(fmt.Sprintf("%d stacks, %s items", len(items), FormatNumber(total))))
	output.WriteString("\n")
	return output.String()
}

// Results renders a full search answer with a title.
func (s *Service) Results(query string, items []*core.OwnedItem) string {
	return TitleStyle.Render(fmt.Sprintf("Owned items matching %q", query)) + "\n" + s.Items(items)
}

// Warnings lists the account sources missing from a refresh.
func Warnings(warnings []owned.Warning) string {
	var output strings.Builder
	for _, w := range warnings {
		output.WriteString(WarningStyle.Render("! " + w.String()))
		output.WriteString("\n")
	}
	return output.String()
}

// RarityCounts tallies entries per rarity, most valuable first.
func RarityCounts(cat *catalog.Catalog) ([]core.Rarity, map[core.Rarity]int) {
	counts := make(map[core.Rarity]int)
	for _, e := range cat.Entries() {
		counts[e.Rarity]++
	}
	rarities := make([]core.Rarity, 0, len(counts))
	for r := range counts {
		rarities = append(rarities, r)
	}
	sort.Slice(rarities, func(i, j int) bool { return rarities[i] > rarities[j] })
	return rarities, counts
}

// CatalogStats renders per-rarity counts of the catalog stored at path.
func CatalogStats(path string, cat *catalog.Catalog) string {
	var output strings.Builder
	output.WriteString(TitleStyle.Render("Item catalog"))
	output.WriteString("\n")
	output.WriteString(MetaStyle.Render(path))
	output.WriteString("\n\n")

	rarities, counts := RarityCounts(cat)
	for _, r := range rarities {
		output.WriteString(countStyle.Render(FormatNumber(counts[r])))
		output.WriteString("  ")
		output.WriteString(RarityStyle(r).Render(r.String()))
		output.WriteString("\n")
	}

	output.WriteString(summaryStyle.Render(fmt.Sprintf("%s items", FormatNumber(cat.Len()))))
	output.WriteString("\n")
	return output.String()
}
