package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"archupdates/pkg/updates"
	"archupdates/pkg/vcs"
)

func init() {
	color.NoColor = true
}

func testSnapshot() *updates.Snapshot {
	return &updates.Snapshot{
		CheckedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Mode:      updates.ModeOnline,
		Pacman: updates.Result[updates.PacmanUpdate]{Items: []updates.PacmanUpdate{
			{Name: "linux", InstalledVersion: "6.13.4.arch1-1", CandidateVersion: "6.13.5.arch1-1", Repository: "core"},
		}},
		AUR: updates.Result[updates.AURUpdate]{Err: &updates.Error{
			Source: updates.SourceAUR,
			Kind:   updates.KindTransport,
			Err:    errors.New("connection refused"),
		}},
		Devel: updates.Result[updates.DevelUpdate]{Items: []updates.DevelUpdate{
			{Name: "neovim-git", VCS: vcs.Git, InstalledVersion: "0.11.0.r12.gabc1234-1", InstalledRef: "abc1234", RemoteRef: "def5678", UpdateAvailable: true},
			{Name: "paru-git", VCS: vcs.Git, InstalledVersion: "2.0.4.r1.g1111111-1", InstalledRef: "1111111", RemoteRef: "1111111"},
		}},
		News: updates.Result[updates.NewsItem]{Skipped: true},
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	opts := RenderOptions{Links: Links{Arch: "x86_64"}, ShowLinks: true}
	if err := RenderText(&buf, testSnapshot(), opts); err != nil {
		t.Fatalf("RenderText() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		":: pacman (1)",
		"linux",
		"6.13.5.arch1-1",
		"https://archlinux.org/packages/core/x86_64/linux/",
		"aur unavailable: transport: connection refused",
		":: devel (1)",
		"neovim-git",
		"def5678",
		"https://aur.archlinux.org/packages/neovim-git",
		"2 updates",
		"aur failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "paru-git") {
		t.Errorf("up to date devel package listed:\n%s", out)
	}
	if strings.Contains(out, ":: news") {
		t.Errorf("skipped source rendered:\n%s", out)
	}
}

func TestRenderTextShowCurrent(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, testSnapshot(), RenderOptions{ShowCurrent: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "paru-git") || !strings.Contains(buf.String(), "up to date") {
		t.Errorf("current devel package not listed:\n%s", buf.String())
	}
}

func TestRenderTextStale(t *testing.T) {
	snap := testSnapshot()
	snap.Pacman.Stale = true

	var buf bytes.Buffer
	if err := RenderText(&buf, snap, RenderOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "refresh failed") {
		t.Errorf("stale marker missing:\n%s", buf.String())
	}
}

func TestRenderTextExplicitMarker(t *testing.T) {
	snap := testSnapshot()
	snap.Pacman.Items = append(snap.Pacman.Items, updates.PacmanUpdate{
		Name: "mesa", InstalledVersion: "1:24.3.4-1", CandidateVersion: "1:25.0.1-1", Repository: "extra", Explicit: true,
	})

	var buf bytes.Buffer
	if err := RenderText(&buf, snap, RenderOptions{}); err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.Contains(line, "mesa") && !strings.Contains(line, "extra explicit"):
			t.Errorf("explicit package not marked: %q", line)
		case strings.Contains(line, "linux") && strings.Contains(line, ExplicitMarker):
			t.Errorf("dependency marked explicit: %q", line)
		}
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name    string
		snap    *updates.Snapshot
		exclude []updates.Source
		want    string
	}{
		{
			name: "up to date",
			snap: &updates.Snapshot{},
			want: "system is up to date",
		},
		{
			name:    "excluded source",
			snap:    testSnapshot(),
			exclude: []updates.Source{updates.SourceDevel},
			want:    "1 update,",
		},
		{
			name: "news",
			snap: &updates.Snapshot{News: updates.Result[updates.NewsItem]{Items: []updates.NewsItem{{Title: "x"}}}},
			want: "1 unread news",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.snap, tt.exclude); !strings.Contains(got, tt.want) {
				t.Errorf("Summary() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, testSnapshot(), FormatJSON, RenderOptions{}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var decoded updates.Snapshot
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Pacman.Items) != 1 || decoded.AUR.Err == nil {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.AUR.Err.Kind != updates.KindTransport {
		t.Errorf("AUR error kind = %v", decoded.AUR.Err.Kind)
	}
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, testSnapshot(), FormatYAML, RenderOptions{}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	aur, ok := doc["aur"].(map[string]any)
	if !ok {
		t.Fatalf("aur section missing: %v", doc)
	}
	errDoc, ok := aur["error"].(map[string]any)
	if !ok || errDoc["kind"] != "transport" {
		t.Errorf("aur error = %v", aur["error"])
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestLinks(t *testing.T) {
	links := Links{
		Arch:     "x86_64",
		RepoURLs: map[string]string{"chaotic-aur": "https://builds.example.org/{pkgname}.html"},
	}

	tests := []struct {
		repo, name string
		want       string
	}{
		{"extra", "firefox", "https://archlinux.org/packages/extra/x86_64/firefox/"},
		{"chaotic-aur", "yay", "https://builds.example.org/yay.html"},
		{"custom", "foo", ""},
	}

	for _, tt := range tests {
		if got := links.Pacman(tt.repo, tt.name); got != tt.want {
			t.Errorf("Pacman(%q, %q) = %q, want %q", tt.repo, tt.name, got, tt.want)
		}
	}
	if got := links.AUR("paru"); got != "https://aur.archlinux.org/packages/paru" {
		t.Errorf("AUR() = %q", got)
	}
}

func TestAnswer(t *testing.T) {
	tests := []struct {
		in         string
		defaultYes bool
		want       bool
	}{
		{"", true, true},
		{"", false, false},
		{"Y", false, true},
		{"yes", false, true},
		{"n", true, false},
	}

	for _, tt := range tests {
		if got := answer(tt.in, tt.defaultYes); got != tt.want {
			t.Errorf("answer(%q, %v) = %v", tt.in, tt.defaultYes, got)
		}
	}
}
