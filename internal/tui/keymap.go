package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	Health   key.Binding
	Upload   key.Binding
	Identify key.Binding
	Match    key.Binding
	Export   key.Binding
	Reset    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Health: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "check backend"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload files"),
		),
		Identify: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "identify columns"),
		),
		Match: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "run matching"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export results"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset session"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Upload, k.Identify, k.Match, k.Help, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Health, k.Upload, k.Identify, k.Match},
		{k.Export, k.Reset},
		{k.Help, k.Quit},
	}
}
