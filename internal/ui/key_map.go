package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	toggle  key.Binding
	remove  key.Binding
	dismiss key.Binding
	reload  key.Binding
	next    key.Binding
	search  key.Binding
	save    key.Binding
	send    key.Binding
	reset   key.Binding
	back    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		toggle:  key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "watched")),
		remove:  key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		dismiss: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "dismiss error")),
		reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		search:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		reset:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "new chat")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "watchlist")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle, k.remove},
		{k.dismiss, k.reload, k.next},
		{k.search, k.save, k.send, k.reset},
		{k.back, k.quit},
	}
}

// viewHelp returns the bindings offered in view.
func (k keyMap) viewHelp(view ViewState) []key.Binding {
	switch view {
	case SearchView:
		return []key.Binding{k.search, k.up, k.down, k.save, k.next, k.back}
	case ChatView:
		return []key.Binding{k.send, k.reset, k.next, k.back}
	default:
		return []key.Binding{k.up, k.down, k.toggle, k.remove, k.dismiss, k.reload, k.next, k.quit}
	}
}
