package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"archupdates/internal/ui"
	"archupdates/pkg/updates"
)

// Controller is the part of the worker the dashboard drives.
type Controller interface {
	Refresh()
	Recheck()
}

// Options wires the dashboard.
type Options struct {
	Worker Controller
	Events <-chan updates.Event
	// Changes signals local package state changes. May be nil.
	Changes <-chan struct{}
	// MarkRead stores the news read time. Nil disables the key.
	MarkRead func(time.Time) error
	Exclude  []updates.Source
	Links    ui.Links
}

// Messages for async operations
type (
	eventMsg        updates.Event
	eventsClosedMsg struct{}
	changeMsg       struct{}
	markedReadMsg   struct{ err error }
)

// App wraps the Model with bubbletea components
type App struct {
	*Model
	opts    Options
	spinner spinner.Model
	help    help.Model
}

// NewApp creates a new TUI application
func NewApp(opts Options) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := NewModel(opts.Exclude, opts.Links)
	sp.Style = m.styles.Checking

	h := help.New()
	h.Styles = helpStyles()

	return &App{
		Model:   m,
		opts:    opts,
		spinner: sp,
		help:    h,
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		waitEvent(a.opts.Events),
		waitChange(a.opts.Changes),
	)
}

func waitEvent(events <-chan updates.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func waitChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changeMsg{}
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetSize(msg.Width, msg.Height)
		a.help.Width = msg.Width
		a.ready = true

	case tea.KeyMsg:
		if i := a.keys.jumpTarget(msg); i >= 0 {
			a.SetTab(i)
			break
		}
		switch {
		case key.Matches(msg, a.keys.Quit):
			if a.showHelp && msg.String() == "esc" {
				a.showHelp = false
				break
			}
			a.quitting = true
			return a, tea.Quit

		case key.Matches(msg, a.keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp

		case key.Matches(msg, a.keys.PrevSource):
			a.PrevTab()
		case key.Matches(msg, a.keys.NextSource):
			a.NextTab()

		case key.Matches(msg, a.keys.RowUp):
			a.MoveCursor(-1)
		case key.Matches(msg, a.keys.RowDown):
			a.MoveCursor(1)
		case key.Matches(msg, a.keys.PageUp):
			a.MoveCursor(-a.VisibleHeight())
		case key.Matches(msg, a.keys.PageDown):
			a.MoveCursor(a.VisibleHeight())
		case key.Matches(msg, a.keys.FirstRow):
			a.GoToTop()
		case key.Matches(msg, a.keys.LastRow):
			a.GoToBottom()

		case key.Matches(msg, a.keys.CheckOnline):
			a.ClearMessages()
			a.opts.Worker.Refresh()
		case key.Matches(msg, a.keys.RecheckLocal):
			a.ClearMessages()
			a.opts.Worker.Recheck()
		case key.Matches(msg, a.keys.ToggleUpToDate):
			a.ToggleCurrent()
		case key.Matches(msg, a.keys.MarkNewsRead):
			if a.opts.MarkRead != nil && len(a.board.News.Items()) > 0 {
				cmds = append(cmds, a.markRead())
			}
		}

	case eventMsg:
		a.HandleEvent(updates.Event(msg))
		cmds = append(cmds, waitEvent(a.opts.Events))

	case eventsClosedMsg:
		a.quitting = true
		return a, tea.Quit

	case changeMsg:
		a.opts.Worker.Recheck()
		cmds = append(cmds, waitChange(a.opts.Changes))

	case markedReadMsg:
		if msg.err != nil {
			a.SetError(fmt.Sprintf("could not mark news read: %v", msg.err))
		} else {
			a.SetSuccess("news marked as read")
			a.opts.Worker.Recheck()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) markRead() tea.Cmd {
	mark := a.opts.MarkRead
	return func() tea.Msg {
		return markedReadMsg{err: mark(time.Now())}
	}
}

// View implements tea.Model
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	b.WriteString(a.renderTabs())
	b.WriteString("\n")
	b.WriteString(a.renderContent())
	b.WriteString(a.renderFooter())
	return b.String()
}

// renderHeader renders the header bar
func (a *App) renderHeader() string {
	title := a.styles.TotalBar.Render(fmt.Sprintf(" archupdates  %s ", countLabel(a.Total())))

	var right string
	switch {
	case a.checking && a.checkingMode == updates.ModeOnline:
		right = a.spinner.View() + " checking online..."
	case a.checking:
		right = a.spinner.View() + " rechecking..."
	case a.errorMsg != "":
		right = a.styles.Failure.Render(a.errorMsg)
	case a.successMsg != "":
		right = a.styles.Notice.Render(a.successMsg)
	case !a.board.LastOnline.IsZero():
		right = a.styles.Hint.Render("checked online " + a.board.LastOnline.Local().Format(time.TimeOnly))
	}

	padding := max(a.width-lipgloss.Width(title)-lipgloss.Width(right)-1, 0)
	return title + strings.Repeat(" ", padding) + right
}

func countLabel(n int) string {
	switch n {
	case 0:
		return "up to date"
	case 1:
		return "1 update"
	}
	return fmt.Sprintf("%d updates", n)
}

// renderTabs renders the tab bar
func (a *App) renderTabs() string {
	var tabs []string
	for i, tab := range a.tabs {
		style := a.styles.Tab(tab.Source, i == a.activeTab)
		label := fmt.Sprintf("[%d] %s (%d)", i+1, tab.Name, a.pending(tab.Source))
		if a.failing(tab.Source) {
			label += " " + ui.SymbolError
		}
		tabs = append(tabs, style.Render(label))
	}

	return a.styles.TabBar.
		Width(a.width).
		Render(strings.Join(tabs, " "))
}

func (a *App) pending(src updates.Source) int {
	switch src {
	case updates.SourcePacman:
		return len(a.board.Pacman.Items())
	case updates.SourceAUR:
		return len(a.board.AUR.Items())
	case updates.SourceDevel:
		return len(a.board.PendingDevel())
	case updates.SourceNews:
		return len(a.board.News.Items())
	}
	return 0
}

func (a *App) failing(src updates.Source) bool {
	return a.sourceError(src) != nil
}

func (a *App) sourceError(src updates.Source) *updates.Error {
	switch src {
	case updates.SourcePacman:
		return a.board.Pacman.Current.Err
	case updates.SourceAUR:
		return a.board.AUR.Current.Err
	case updates.SourceDevel:
		return a.board.Devel.Current.Err
	case updates.SourceNews:
		return a.board.News.Current.Err
	}
	return nil
}

func (a *App) checked(src updates.Source) (bool, time.Time) {
	switch src {
	case updates.SourcePacman:
		return a.board.Pacman.Checked(), a.board.Pacman.LastGoodAt
	case updates.SourceAUR:
		return a.board.AUR.Checked(), a.board.AUR.LastGoodAt
	case updates.SourceDevel:
		return a.board.Devel.Checked(), a.board.Devel.LastGoodAt
	case updates.SourceNews:
		return a.board.News.Checked(), a.board.News.LastGoodAt
	}
	return false, time.Time{}
}

// renderContent renders the main content area
func (a *App) renderContent() string {
	var b strings.Builder
	tab := a.CurrentTab()

	checked, lastGood := a.checked(tab.Source)
	if err := a.sourceError(tab.Source); err != nil {
		b.WriteString(a.styles.Failure.Render(ui.SymbolError + " " + ui.SourceUnavailable(err)))
		b.WriteString("\n")
		if !lastGood.IsZero() {
			b.WriteString(a.styles.StaleNote.Render("showing results of " + lastGood.Local().Format(time.DateTime)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(a.styles.SourceTitle.Render(tab.Name))
		b.WriteString("\n\n")
	}

	rows := a.ListItems()
	switch {
	case !checked:
		b.WriteString(a.styles.Hint.Render("  not checked yet"))
	case len(rows) == 0 && tab.Source == updates.SourceNews:
		b.WriteString(a.styles.Hint.Render("  no unread news"))
	case len(rows) == 0:
		b.WriteString(a.styles.Notice.Render("  " + ui.SymbolSuccess + " up to date"))
	default:
		b.WriteString(a.renderRows(rows))
	}

	height := max(a.height-3, 0)
	return lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Render(b.String())
}

func (a *App) renderRows(rows []Row) string {
	var b strings.Builder

	nameWidth := 0
	fromWidth := 0
	for _, r := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.Name))
		fromWidth = max(fromWidth, lipgloss.Width(r.From))
	}
	nameWidth = min(nameWidth, max(a.width/2, 10))

	start := a.Scroll()
	end := min(start+a.VisibleHeight(), len(rows))
	cursor := a.Cursor()

	for i := start; i < end; i++ {
		r := rows[i]
		marker := "  "
		if i == cursor {
			marker = a.styles.Pointer.Render("> ")
		}
		name := a.styles.Package.Width(nameWidth).MaxWidth(nameWidth).Render(r.Name)
		from := a.styles.Installed.Width(fromWidth).Render(r.From)
		to := a.styles.Candidate.Render(r.To)
		detail := a.styles.Origin.Render(r.Detail)

		var line string
		switch {
		case a.CurrentTab().Source == updates.SourceNews:
			line = fmt.Sprintf("%s%s  %s  %s", marker, a.styles.Hint.Render(r.From), a.styles.Package.Render(r.Name), detail)
		case r.Current:
			line = fmt.Sprintf("%s%s  %s  %s  %s", marker, name, from, a.styles.Hint.Render("up to date"), detail)
		default:
			line = fmt.Sprintf("%s%s  %s %s %s  %s", marker, name, from, ui.SymbolArrow, to, detail)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(rows) > a.VisibleHeight() {
		b.WriteString(a.styles.Hint.Render(fmt.Sprintf("  (%d/%d)", cursor+1, len(rows))))
		b.WriteString("\n")
	}
	if r, ok := a.Selected(); ok && r.Link != "" {
		b.WriteString("\n")
		b.WriteString("  " + a.styles.Link.Render(r.Link))
	}
	return b.String()
}

// renderFooter renders the footer bar
func (a *App) renderFooter() string {
	return "\n" + a.help.View(a.keys)
}

// Run starts the dashboard and blocks until the user quits or the event
// stream ends.
func Run(opts Options) error {
	p := tea.NewProgram(NewApp(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
