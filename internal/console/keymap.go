package console

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the console bindings. Bindings are enabled and disabled as the
// session mode changes so help only shows what can be pressed.
type KeyMap struct {
	Run      key.Binding
	Continue key.Binding
	Approve  key.Binding
	Deny     key.Binding
	Clear    key.Binding
	Load     key.Binding
	History  key.Binding
	Copy     key.Binding
	Login    key.Binding
	Logout   key.Binding
	Disks    key.Binding
	Back     key.Binding
	Select   key.Binding
	Up       key.Binding
	Down     key.Binding
	Next     key.Binding
	Quit     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Run:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "run")),
		Continue: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "continue")),
		Approve:  key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "approve")),
		Deny:     key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("n", "deny")),
		Clear:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		Load:     key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "load file")),
		History:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "history")),
		Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy output")),
		Login:    key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "login")),
		Logout:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "logout")),
		Disks:    key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "disks")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Up:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// scriptHelp is the help.KeyMap for the script view.
type scriptHelp struct{ keys *KeyMap }

func (h scriptHelp) ShortHelp() []key.Binding {
	k := h.keys
	return []key.Binding{k.Run, k.Continue, k.Approve, k.Deny, k.Clear, k.Quit}
}

func (h scriptHelp) FullHelp() [][]key.Binding {
	k := h.keys
	return [][]key.Binding{
		{k.Run, k.Continue, k.Approve, k.Deny},
		{k.Clear, k.Load, k.History, k.Copy},
		{k.Login, k.Logout, k.Disks, k.Quit},
	}
}

// browseHelp is the help.KeyMap for list views and forms.
type browseHelp struct{ keys *KeyMap }

func (h browseHelp) ShortHelp() []key.Binding {
	k := h.keys
	return []key.Binding{k.Up, k.Down, k.Select, k.Next, k.Back, k.Quit}
}

func (h browseHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{h.ShortHelp()}
}
