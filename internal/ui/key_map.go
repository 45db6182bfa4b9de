package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	back     key.Binding
	compose  key.Binding
	feedback key.Binding
	reload   key.Binding
	yes      key.Binding
	no       key.Binding
	submit   key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		compose:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new prompt")),
		feedback: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "feedback")),
		reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.compose, k.feedback, k.reload},
		{k.back, k.quit},
	}
}
