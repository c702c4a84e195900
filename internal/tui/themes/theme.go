// Package themes defines the color schemes of the interactive reconciliation UI.
package themes

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Panel         lipgloss.Style
	Output        lipgloss.Style
	Spinner       lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusError   lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusPending lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
}

// Palette is the set of colors a theme is built from.
type Palette struct {
	Primary    lipgloss.Color
	Foreground lipgloss.Color
	Subtle     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Info       lipgloss.Color
}

// New builds a theme from a palette.
func New(p Palette) Theme {
	return Theme{
		Primary: p.Primary,
		Muted:   p.Muted,
		Border:  p.Border,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Foreground).
			Background(p.Primary).
			Padding(0, 1),
		Subtitle: lipgloss.NewStyle().
			Foreground(p.Subtle),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		Output: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		Spinner: lipgloss.NewStyle().
			Foreground(p.Primary),
		StatusSuccess: lipgloss.NewStyle().
			Foreground(p.Success).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),
		StatusInfo: lipgloss.NewStyle().
			Foreground(p.Info),
		StatusPending: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),
	}
}

// Default is the default theme.
var Default = New(Palette{
	Primary:    lipgloss.Color("#7c3aed"),
	Foreground: lipgloss.Color("#fafafa"),
	Subtle:     lipgloss.Color("#a3a3a3"),
	Muted:      lipgloss.Color("#737373"),
	Border:     lipgloss.Color("#404040"),
	Success:    lipgloss.Color("#10b981"),
	Error:      lipgloss.Color("#ef4444"),
	Info:       lipgloss.Color("#3b82f6"),
})

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = New(Palette{
	Primary:    lipgloss.Color("#cba6f7"),
	Foreground: lipgloss.Color("#1e1e2e"),
	Subtle:     lipgloss.Color("#a6adc8"),
	Muted:      lipgloss.Color("#6c7086"),
	Border:     lipgloss.Color("#45475a"),
	Success:    lipgloss.Color("#a6e3a1"),
	Error:      lipgloss.Color("#f38ba8"),
	Info:       lipgloss.Color("#89dceb"),
})

var byName = map[string]Theme{
	"default":    Default,
	"catppuccin": CatppuccinMocha,
}

// Names lists the selectable theme names.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the theme registered under name.
func Lookup(name string) (Theme, error) {
	if name == "" {
		return Default, nil
	}
	theme, ok := byName[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q (available: %v)", name, Names())
	}
	return theme, nil
}
