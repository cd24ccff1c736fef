package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard key bindings.
type KeyMap struct {
	Next        key.Binding
	Previous    key.Binding
	Toggle      key.Binding
	ToggleTotal key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap uses vim-style j/k alongside the arrow keys.
var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "next"),
	),
	Previous: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "prev"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "hide/show"),
	),
	ToggleTotal: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "total"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Next, k.Previous, k.Toggle, k.ToggleTotal, k.Help}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Previous},
		{k.Toggle, k.ToggleTotal},
		{k.Help, k.Quit},
	}
}
