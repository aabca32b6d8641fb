package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"archupdates/pkg/news"
	"archupdates/pkg/updates"
)

// Format selects how snapshots are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a format name. An empty name selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (valid: text, json, yaml)", s)
}

// RenderOptions tunes text output.
type RenderOptions struct {
	Links Links
	// Exclude lists sources left out of the total.
	Exclude []updates.Source
	// ShowCurrent also lists devel packages that are up to date.
	ShowCurrent bool
	// ShowLinks prints a package page after each row.
	ShowLinks bool
}

// Render writes snap to w in the given format.
func Render(w io.Writer, snap *updates.Snapshot, format Format, opts RenderOptions) error {
	switch format {
	case FormatJSON:
		return RenderJSON(w, snap)
	case FormatYAML:
		return RenderYAML(w, snap)
	default:
		return RenderText(w, snap, opts)
	}
}

// RenderJSON writes v as indented JSON.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderYAML writes v as YAML.
func RenderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// RenderText writes a human readable report, one section per checked
// source. A failed source prints its error in place of its list.
func RenderText(w io.Writer, snap *updates.Snapshot, opts RenderOptions) error {
	if !snap.Pacman.Skipped {
		section(w, updates.SourcePacman, len(snap.Pacman.Items), snap.Pacman.Err, snap.Pacman.Stale)
		if snap.Pacman.OK() && len(snap.Pacman.Items) > 0 {
			t := NewTable(w)
			for _, u := range snap.Pacman.Items {
				t.AddRow(versionRow(u.Name, u.InstalledVersion, u.CandidateVersion, withReason(Repository.Sprint(u.Repository), u.Explicit))...)
				if link := opts.Links.Pacman(u.Repository, u.Name); opts.ShowLinks && link != "" {
					t.AddRow("", Muted.Sprint(link))
				}
			}
			if err := t.Render(); err != nil {
				return err
			}
		}
	}

	if !snap.AUR.Skipped {
		section(w, updates.SourceAUR, len(snap.AUR.Items), snap.AUR.Err, snap.AUR.Stale)
		if snap.AUR.OK() && len(snap.AUR.Items) > 0 {
			t := NewTable(w)
			for _, u := range snap.AUR.Items {
				note := ""
				if u.OutOfDate {
					note = Flagged.Sprint("out of date")
				}
				t.AddRow(versionRow(u.Name, u.InstalledVersion, u.CandidateVersion, withReason(note, u.Explicit))...)
				if opts.ShowLinks {
					t.AddRow("", Muted.Sprint(opts.Links.AUR(u.Name)))
				}
			}
			if err := t.Render(); err != nil {
				return err
			}
		}
	}

	if !snap.Devel.Skipped {
		if err := renderDevel(w, snap, opts); err != nil {
			return err
		}
	}

	if !snap.News.Skipped {
		section(w, updates.SourceNews, len(snap.News.Items), snap.News.Err, snap.News.Stale)
		if snap.News.OK() {
			RenderNews(w, snap.News.Items)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, Summary(snap, opts.Exclude))
	return nil
}

func renderDevel(w io.Writer, snap *updates.Snapshot, opts RenderOptions) error {
	pending := snap.PendingDevel()
	section(w, updates.SourceDevel, len(pending), snap.Devel.Err, snap.Devel.Stale)
	if !snap.Devel.OK() {
		return nil
	}

	rows := pending
	if opts.ShowCurrent {
		rows = snap.Devel.Items
	}
	if len(rows) == 0 {
		return nil
	}

	t := NewTable(w)
	for _, u := range rows {
		installed := u.InstalledRef
		if installed == "" {
			installed = u.InstalledVersion
		}
		if !u.UpdateAvailable {
			t.AddRow(PackageName.Sprint(u.Name), installed, "", Muted.Sprint("up to date"), string(u.VCS))
			continue
		}
		t.AddRow(versionRow(u.Name, installed, u.RemoteRef, string(u.VCS))...)
		if opts.ShowLinks {
			t.AddRow("", Muted.Sprint(opts.Links.AUR(u.Name)))
		}
	}
	return t.Render()
}

func versionRow(name, from, to, extra string) []string {
	return []string{
		PackageName.Sprint(name),
		OldVersion.Sprint(from),
		SymbolArrow,
		NewVersion.Sprint(to),
		extra,
	}
}

// ExplicitMarker tags updates of explicitly installed packages.
const ExplicitMarker = "explicit"

func withReason(detail string, explicit bool) string {
	if !explicit {
		return detail
	}
	if detail == "" {
		return Muted.Sprint(ExplicitMarker)
	}
	return detail + " " + Muted.Sprint(ExplicitMarker)
}

func section(w io.Writer, src updates.Source, n int, err *updates.Error, stale bool) {
	if err != nil {
		fmt.Fprintf(w, "%s %s\n", Error.Sprint(SymbolError), SourceUnavailable(err))
		return
	}
	title := fmt.Sprintf(":: %s (%d)", src, n)
	if stale {
		title += " " + Warning.Sprint(SymbolStale+" from the previous sync, refresh failed")
	}
	fmt.Fprintln(w, Header.Sprint(title))
}

// SourceUnavailable describes a failed source for display.
func SourceUnavailable(err *updates.Error) string {
	return fmt.Sprintf("%s unavailable: %s: %v", err.Source, err.Kind, err.Err)
}

// Summary returns the one-line total of a snapshot.
func Summary(snap *updates.Snapshot, exclude []updates.Source) string {
	total := snap.Total(exclude...)
	var parts []string
	switch total {
	case 0:
		parts = append(parts, Success.Sprint(SymbolSuccess+" system is up to date"))
	case 1:
		parts = append(parts, Bold("1 update"))
	default:
		parts = append(parts, Bold(fmt.Sprintf("%d updates", total)))
	}
	if n := len(snap.News.Items); n > 0 {
		parts = append(parts, Info.Sprintf("%d unread news", n))
	}
	if errs := snap.Errors(); len(errs) > 0 {
		names := make([]string, len(errs))
		for i, err := range errs {
			names[i] = string(err.Source)
		}
		parts = append(parts, Warning.Sprintf("%s failed", strings.Join(names, ", ")))
	}
	return strings.Join(parts, ", ")
}

// RenderNews lists news items, newest first as the feed orders them.
func RenderNews(w io.Writer, items []updates.NewsItem) {
	for _, item := range items {
		fmt.Fprintf(w, "  %s  %s\n", Muted.Sprint(item.Published.Local().Format(time.DateOnly)), Bold(item.Title))
		if item.Link != "" {
			fmt.Fprintf(w, "              %s\n", Cyan(item.Link))
		}
	}
}

// RenderNewsItem prints every field of one news entry.
func RenderNewsItem(w io.Writer, item updates.NewsItem) {
	fmt.Fprintln(w, Header.Sprint(item.Title))
	printField(w, "Published", item.Published.Local().Format(time.DateTime))
	if item.Author != "" {
		printField(w, "Author", item.Author)
	}
	if item.Link != "" {
		printField(w, "Link", item.Link)
	}
	if item.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, news.PlainText(item.Description))
	}
}
