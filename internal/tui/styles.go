// Package tui provides the interactive update dashboard of archupdates watch.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"archupdates/pkg/updates"
)

// Each source tab is drawn in its own accent; anything that is not tied to a
// source uses the pacman blue.
var sourceAccents = map[updates.Source]lipgloss.Color{
	updates.SourcePacman: lipgloss.Color("#1793D1"),
	updates.SourceAUR:    lipgloss.Color("#7C3AED"),
	updates.SourceDevel:  lipgloss.Color("#F97316"),
	updates.SourceNews:   lipgloss.Color("#10B981"),
}

var (
	barBackground = lipgloss.Color("#374151")
	barText       = lipgloss.Color("#F3F4F6")
	dimText       = lipgloss.Color("#6B7280")
	linkText      = lipgloss.Color("#06B6D4")

	// staleText marks results kept from an earlier check while a source is
	// failing; failingText marks the failure itself.
	staleText   = lipgloss.Color("#F59E0B")
	failingText = lipgloss.Color("#EF4444")
	behindText  = lipgloss.Color("#EF4444")
	aheadText   = lipgloss.Color("#10B981")
)

func accent(src updates.Source) lipgloss.Color {
	if c, ok := sourceAccents[src]; ok {
		return c
	}
	return sourceAccents[updates.SourcePacman]
}

// dashboardStyles are the styles of the header, tab bar, rows and footer.
type dashboardStyles struct {
	// header and tab bar
	TotalBar  lipgloss.Style
	TabBar    lipgloss.Style
	IdleTab   lipgloss.Style
	activeTab map[updates.Source]lipgloss.Style

	// tab body
	SourceTitle lipgloss.Style
	Hint        lipgloss.Style
	StaleNote   lipgloss.Style
	Failure     lipgloss.Style
	Notice      lipgloss.Style

	// one row per package or news item
	Pointer   lipgloss.Style
	Package   lipgloss.Style
	Installed lipgloss.Style
	Candidate lipgloss.Style
	Origin    lipgloss.Style
	Link      lipgloss.Style

	Checking lipgloss.Style
}

func newDashboardStyles() *dashboardStyles {
	s := &dashboardStyles{
		TotalBar: lipgloss.NewStyle().
			Foreground(barText).
			Background(barBackground).
			Padding(0, 1).
			Bold(true),
		TabBar:    lipgloss.NewStyle().Background(barBackground),
		IdleTab:   lipgloss.NewStyle().Padding(0, 2).Foreground(dimText),
		activeTab: make(map[updates.Source]lipgloss.Style, len(sourceAccents)),

		SourceTitle: lipgloss.NewStyle().Foreground(barText).Bold(true),
		Hint:        lipgloss.NewStyle().Foreground(dimText),
		StaleNote:   lipgloss.NewStyle().Foreground(staleText).Italic(true),
		Failure:     lipgloss.NewStyle().Foreground(failingText).Bold(true),
		Notice:      lipgloss.NewStyle().Foreground(aheadText).Bold(true),

		Pointer:   lipgloss.NewStyle().Foreground(accent(updates.SourcePacman)).Bold(true),
		Package:   lipgloss.NewStyle().Foreground(barText).Bold(true),
		Installed: lipgloss.NewStyle().Foreground(behindText),
		Candidate: lipgloss.NewStyle().Foreground(aheadText),
		Origin:    lipgloss.NewStyle().Foreground(linkText).Italic(true),
		Link:      lipgloss.NewStyle().Foreground(linkText).Underline(true),

		Checking: lipgloss.NewStyle().Foreground(accent(updates.SourcePacman)),
	}
	for src, c := range sourceAccents {
		s.activeTab[src] = s.IdleTab.Foreground(c).Bold(true).Underline(true)
	}
	return s
}

// Tab returns the style of a source's tab label.
func (s *dashboardStyles) Tab(src updates.Source, active bool) lipgloss.Style {
	if !active {
		return s.IdleTab
	}
	if st, ok := s.activeTab[src]; ok {
		return st
	}
	return s.IdleTab.Bold(true)
}

// helpStyles colors the key hints in the footer like the rest of the bar.
func helpStyles() help.Styles {
	keys := lipgloss.NewStyle().Foreground(linkText).Bold(true)
	desc := lipgloss.NewStyle().Foreground(dimText)
	sep := lipgloss.NewStyle().Foreground(barBackground)
	return help.Styles{
		ShortKey:       keys,
		ShortDesc:      desc,
		ShortSeparator: sep,
		Ellipsis:       sep,
		FullKey:        keys,
		FullDesc:       desc,
		FullSeparator:  sep,
	}
}
