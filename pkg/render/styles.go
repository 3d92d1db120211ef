package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/itemsearch/pkg/core"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	MetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32")).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("32")).
			Padding(0, 1).
			Margin(1, 0, 0, 0)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	countStyle = lipgloss.NewStyle().
			Bold(true).
			Width(7).
			Align(lipgloss.Right)
)

// rarityColors follow the in-game item name colors.
var rarityColors = map[core.Rarity]lipgloss.Color{
	core.RarityJunk:       lipgloss.Color("245"),
	core.RarityBasic:      lipgloss.Color("255"),
	core.RarityFine:       lipgloss.Color("33"),
	core.RarityMasterwork: lipgloss.Color("34"),
	core.RarityRare:       lipgloss.Color("220"),
	core.RarityExotic:     lipgloss.Color("214"),
	core.RarityAscended:   lipgloss.Color("205"),
	core.RarityLegendary:  lipgloss.Color("135"),
}

func RarityStyle(r core.Rarity) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	if c, ok := rarityColors[r]; ok {
		style = style.Foreground(c)
	}
	return style
}
