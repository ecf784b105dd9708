package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/sadopc/dirpie/internal/ui/components"
)

// KeyMap holds all key bindings for the application.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Enter     key.Binding
	Back      key.Binding
	Mark      key.Binding
	Delete    key.Binding
	Export    key.Binding
	Rescan    key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding

	ViewList    key.Binding
	ViewTreemap key.Binding

	SortSize key.Binding
	SortName key.Binding

	ConfirmYes key.Binding
	ConfirmNo  key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:        bind("↑/k", "Move up", "up", "k"),
		Down:      bind("↓/j", "Move down", "down", "j"),
		Left:      bind("←/h", "Analyze parent", "left", "h"),
		Right:     bind("→/l", "Analyze directory", "right", "l"),
		Enter:     bind("enter", "Analyze directory", "enter"),
		Back:      bind("backspace", "Analyze parent", "backspace"),
		Mark:      bind("space", "Mark/unmark entry", " "),
		Delete:    bind("d", "Delete marked/current", "d"),
		Export:    bind("E", "Export view to JSON", "E"),
		Rescan:    bind("r", "Rescan, discarding cached sizes", "r"),
		Quit:      bind("q", "Quit", "q"),
		ForceQuit: bind("ctrl+c", "Quit immediately", "ctrl+c"),
		Help:      bind("?", "Toggle help", "?"),

		ViewList:    bind("1", "List", "1"),
		ViewTreemap: bind("2", "Treemap", "2"),

		SortSize: bind("s", "Sort by size (again to reverse)", "s"),
		SortName: bind("n", "Sort by name (again to reverse)", "n"),

		ConfirmYes: bind("y", "yes", "y", "Y"),
		ConfirmNo:  bind("n/esc", "no", "n", "N", "esc"),
	}
}

// HelpSections groups the browsing bindings for the help overlay, so the
// overlay always shows the keys actually bound.
func (k KeyMap) HelpSections() []components.HelpSection {
	group := func(name string, bs ...key.Binding) components.HelpSection {
		sec := components.HelpSection{Name: name}
		for _, b := range bs {
			if !b.Enabled() {
				continue
			}
			h := b.Help()
			sec.Binds = append(sec.Binds, components.HelpBind{Key: h.Key, Desc: h.Desc})
		}
		return sec
	}
	return []components.HelpSection{
		group("Navigation", k.Up, k.Down, k.Enter, k.Right, k.Back, k.Left),
		group("Views", k.ViewList, k.ViewTreemap, k.SortSize, k.SortName),
		group("Actions", k.Mark, k.Delete, k.Export, k.Rescan, k.Help, k.Quit, k.ForceQuit),
	}
}
