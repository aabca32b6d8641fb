package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// dashboardKeys are the bindings of the dashboard, grouped by what they act
// on. It implements help.KeyMap for the footer.
type dashboardKeys struct {
	RowUp    key.Binding
	RowDown  key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	FirstRow key.Binding
	LastRow  key.Binding

	PrevSource key.Binding
	NextSource key.Binding
	// JumpTo[i] selects the i-th source tab.
	JumpTo []key.Binding

	CheckOnline    key.Binding
	RecheckLocal   key.Binding
	MarkNewsRead   key.Binding
	ToggleUpToDate key.Binding

	Help key.Binding
	Quit key.Binding
}

func newDashboardKeys(tabs []Tab) dashboardKeys {
	k := dashboardKeys{
		RowUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "previous package")),
		RowDown:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "next package")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdown", "page down")),
		FirstRow: key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
		LastRow:  key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),

		PrevSource: key.NewBinding(key.WithKeys("left", "h", "shift+tab"), key.WithHelp("h/left", "previous source")),
		NextSource: key.NewBinding(key.WithKeys("right", "l", "tab"), key.WithHelp("l/right", "next source")),

		CheckOnline:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "check online now")),
		RecheckLocal:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "recheck installed packages")),
		MarkNewsRead:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "mark news read")),
		ToggleUpToDate: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle up to date devel packages")),

		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
	// Digits 1-9 jump to the source tabs in display order.
	for i, tab := range tabs[:min(len(tabs), 9)] {
		digit := fmt.Sprint(i + 1)
		k.JumpTo = append(k.JumpTo, key.NewBinding(
			key.WithKeys(digit),
			key.WithHelp(digit, strings.ToLower(tab.Name)),
		))
	}
	return k
}

// jumpTarget returns the tab index a digit key selects, or -1.
func (k dashboardKeys) jumpTarget(msg tea.KeyMsg) int {
	for i, b := range k.JumpTo {
		if key.Matches(msg, b) {
			return i
		}
	}
	return -1
}

// ShortHelp implements help.KeyMap.
func (k dashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.NextSource, k.CheckOnline, k.MarkNewsRead, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k dashboardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.RowUp, k.RowDown, k.PageUp, k.PageDown, k.FirstRow, k.LastRow},
		append([]key.Binding{k.PrevSource, k.NextSource}, k.JumpTo...),
		{k.CheckOnline, k.RecheckLocal, k.MarkNewsRead, k.ToggleUpToDate},
		{k.Help, k.Quit},
	}
}
