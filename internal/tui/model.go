package tui

import (
	"time"

	"archupdates/internal/ui"
	"archupdates/pkg/updates"
)

// Tab represents a navigable tab
type Tab struct {
	Name   string
	Source updates.Source
}

// DefaultTabs returns one tab per update source.
func DefaultTabs() []Tab {
	return []Tab{
		{Name: "Pacman", Source: updates.SourcePacman},
		{Name: "AUR", Source: updates.SourceAUR},
		{Name: "Devel", Source: updates.SourceDevel},
		{Name: "News", Source: updates.SourceNews},
	}
}

// Row is one line of a tab.
type Row struct {
	Name   string
	From   string
	To     string
	Detail string
	Link   string
	// Current marks a devel package without an update.
	Current bool
}

// Model holds the application state
type Model struct {
	ready    bool
	quitting bool

	width  int
	height int

	tabs      []Tab
	activeTab int
	showHelp  bool
	// showCurrent lists up to date devel packages too.
	showCurrent bool

	board   updates.Board
	exclude []updates.Source
	links   ui.Links

	checking     bool
	checkingMode updates.Mode
	errorMsg     string
	successMsg   string

	cursors map[updates.Source]int
	scrolls map[updates.Source]int

	styles *dashboardStyles
	keys   dashboardKeys
}

// NewModel creates a new TUI model
func NewModel(exclude []updates.Source, links ui.Links) *Model {
	tabs := DefaultTabs()
	return &Model{
		tabs:    tabs,
		exclude: exclude,
		links:   links,
		cursors: make(map[updates.Source]int),
		scrolls: make(map[updates.Source]int),
		styles:  newDashboardStyles(),
		keys:    newDashboardKeys(tabs),
	}
}

// SetSize sets the terminal size
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// CurrentTab returns the current tab
func (m *Model) CurrentTab() Tab {
	if m.activeTab >= 0 && m.activeTab < len(m.tabs) {
		return m.tabs[m.activeTab]
	}
	return m.tabs[0]
}

// HandleEvent records worker progress.
func (m *Model) HandleEvent(ev updates.Event) {
	switch ev.Kind {
	case updates.EventStarted:
		m.checking = true
		m.checkingMode = ev.Mode
	case updates.EventFinished:
		m.checking = false
		m.board.Apply(ev.Snapshot)
		m.clampCursors()
	}
}

// Board returns the accumulated results.
func (m *Model) Board() *updates.Board {
	return &m.board
}

// Total returns the number of pending updates shown in the header.
func (m *Model) Total() int {
	return m.board.Total(m.exclude...)
}

// Rows returns the lines of a source's tab.
func (m *Model) Rows(src updates.Source) []Row {
	var rows []Row
	switch src {
	case updates.SourcePacman:
		for _, u := range m.board.Pacman.Items() {
			rows = append(rows, Row{
				Name:   u.Name,
				From:   u.InstalledVersion,
				To:     u.CandidateVersion,
				Detail: detailWithReason(u.Repository, u.Explicit),
				Link:   m.links.Pacman(u.Repository, u.Name),
			})
		}
	case updates.SourceAUR:
		for _, u := range m.board.AUR.Items() {
			detail := ""
			if u.OutOfDate {
				detail = "out of date"
			}
			detail = detailWithReason(detail, u.Explicit)
			rows = append(rows, Row{
				Name:   u.Name,
				From:   u.InstalledVersion,
				To:     u.CandidateVersion,
				Detail: detail,
				Link:   m.links.AUR(u.Name),
			})
		}
	case updates.SourceDevel:
		for _, u := range m.board.Devel.Items() {
			if !u.UpdateAvailable && !m.showCurrent {
				continue
			}
			from := u.InstalledRef
			if from == "" {
				from = u.InstalledVersion
			}
			rows = append(rows, Row{
				Name:    u.Name,
				From:    from,
				To:      u.RemoteRef,
				Detail:  string(u.VCS),
				Link:    m.links.AUR(u.Name),
				Current: !u.UpdateAvailable,
			})
		}
	case updates.SourceNews:
		for _, item := range m.board.News.Items() {
			rows = append(rows, Row{
				Name:   item.Title,
				From:   item.Published.Local().Format(time.DateOnly),
				Detail: item.Author,
				Link:   item.Link,
			})
		}
	}
	return rows
}

// ListItems returns the rows of the current tab.
func (m *Model) ListItems() []Row {
	return m.Rows(m.CurrentTab().Source)
}

// Cursor returns the cursor position for the current tab
func (m *Model) Cursor() int {
	return m.cursors[m.CurrentTab().Source]
}

// SetCursor sets the cursor position for the current tab
func (m *Model) SetCursor(pos int) {
	m.cursors[m.CurrentTab().Source] = pos
}

// Scroll returns the scroll offset for the current tab
func (m *Model) Scroll() int {
	return m.scrolls[m.CurrentTab().Source]
}

// SetScroll sets the scroll offset for the current tab
func (m *Model) SetScroll(offset int) {
	m.scrolls[m.CurrentTab().Source] = offset
}

// VisibleHeight returns the height available for list content
func (m *Model) VisibleHeight() int {
	// header (1), tabs (1), title (2), footer (1), detail (2)
	if h := m.height - 7; h > 0 {
		return h
	}
	return 1
}

// Selected returns the row under the cursor.
func (m *Model) Selected() (Row, bool) {
	items := m.ListItems()
	cursor := m.Cursor()
	if cursor >= 0 && cursor < len(items) {
		return items[cursor], true
	}
	return Row{}, false
}

// MoveCursor moves the cursor by delta, clamping to valid range
func (m *Model) MoveCursor(delta int) {
	items := m.ListItems()
	if len(items) == 0 {
		return
	}

	newPos := min(max(m.Cursor()+delta, 0), len(items)-1)
	m.SetCursor(newPos)

	// Adjust scroll to keep cursor visible
	visibleHeight := m.VisibleHeight()
	scroll := m.Scroll()

	if newPos < scroll {
		m.SetScroll(newPos)
	} else if newPos >= scroll+visibleHeight {
		m.SetScroll(newPos - visibleHeight + 1)
	}
}

// GoToTop moves cursor to the top
func (m *Model) GoToTop() {
	m.SetCursor(0)
	m.SetScroll(0)
}

// GoToBottom moves cursor to the bottom
func (m *Model) GoToBottom() {
	items := m.ListItems()
	if len(items) == 0 {
		return
	}
	m.SetCursor(len(items) - 1)

	visibleHeight := m.VisibleHeight()
	if len(items) > visibleHeight {
		m.SetScroll(len(items) - visibleHeight)
	}
}

// clampCursors keeps cursors inside lists that shrank.
func (m *Model) clampCursors() {
	for _, tab := range m.tabs {
		n := len(m.Rows(tab.Source))
		if m.cursors[tab.Source] >= n {
			m.cursors[tab.Source] = max(n-1, 0)
		}
		if m.scrolls[tab.Source] > m.cursors[tab.Source] {
			m.scrolls[tab.Source] = m.cursors[tab.Source]
		}
	}
}

// NextTab switches to the next tab
func (m *Model) NextTab() {
	m.activeTab = (m.activeTab + 1) % len(m.tabs)
}

// PrevTab switches to the previous tab
func (m *Model) PrevTab() {
	m.activeTab--
	if m.activeTab < 0 {
		m.activeTab = len(m.tabs) - 1
	}
}

// SetTab switches to a specific tab by index
func (m *Model) SetTab(index int) {
	if index >= 0 && index < len(m.tabs) {
		m.activeTab = index
	}
}

// ToggleCurrent shows or hides up to date devel packages.
func (m *Model) ToggleCurrent() {
	m.showCurrent = !m.showCurrent
	m.clampCursors()
}

// SetError sets an error message
func (m *Model) SetError(msg string) {
	m.errorMsg = msg
	m.successMsg = ""
}

// SetSuccess sets a success message
func (m *Model) SetSuccess(msg string) {
	m.successMsg = msg
	m.errorMsg = ""
}

// ClearMessages clears all messages
func (m *Model) ClearMessages() {
	m.errorMsg = ""
	m.successMsg = ""
}

func detailWithReason(detail string, explicit bool) string {
	switch {
	case !explicit:
		return detail
	case detail == "":
		return ui.ExplicitMarker
	}
	return detail + " " + ui.ExplicitMarker
}
