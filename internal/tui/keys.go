package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/sadopc/pomodoro/internal/timer"
)

// keyMap holds navigation keys. Timer keys come from timer.Config so that
// they follow the user's configuration.
type keyMap struct {
	Export key.Binding
	Tab1   key.Binding
	Tab2   key.Binding
	Tab3   key.Binding
	Tab    key.Binding
	Help   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
}

var keys = keyMap{
	Export: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "export"),
	),
	Tab1: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "timer"),
	),
	Tab2: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "history"),
	),
	Tab3: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "stats"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "edit"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "older"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "newer"),
	),
}

// helpKeys joins the configured timer keys with the navigation keys for
// the help footer.
type helpKeys struct {
	timer timer.Config
	nav   keyMap
}

func (k helpKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.timer.Pause, k.timer.Skip, k.nav.Tab, k.nav.Help, k.timer.Quit}
}

func (k helpKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.timer.Pause, k.timer.Skip, k.timer.Quit},
		{k.nav.Tab1, k.nav.Tab2, k.nav.Tab3, k.nav.Tab},
		{k.nav.Up, k.nav.Down, k.nav.Enter, k.nav.Back},
		{k.nav.Left, k.nav.Right, k.nav.Export, k.nav.Help},
	}
}
