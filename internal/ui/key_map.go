package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	play     key.Binding
	back     key.Binding
	toggle   key.Binding
	rate     key.Binding
	unrate   key.Binding
	remove   key.Binding
	random   key.Binding
	sort     key.Binding
	reverse  key.Binding
	search   key.Binding
	filter   key.Binding
	open     key.Binding
	importDB key.Binding
	playlist key.Binding
	next     key.Binding
	prev     key.Binding
	dismiss  key.Binding
	kind     key.Binding
	add      key.Binding
	edit     key.Binding
	complete key.Binding
	create   key.Binding
	keep     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		play:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		toggle:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
		rate:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "rate")),
		unrate:   key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "unrate")),
		remove:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		random:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "random")),
		sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		reverse:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "reverse")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		open:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "collection")),
		importDB: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import")),
		playlist: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "playlist link")),
		next:     key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next page")),
		prev:     key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "prev page")),
		dismiss:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		kind:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "search kind")),
		add:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
		edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit query")),
		complete: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete")),
		create:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "create")),
		keep:     key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "keep user data")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.play, k.toggle},
		{k.rate, k.unrate, k.remove, k.random},
		{k.sort, k.reverse, k.next, k.prev},
		{k.search, k.filter, k.open, k.importDB, k.playlist},
		{k.dismiss, k.back, k.quit},
	}
}
