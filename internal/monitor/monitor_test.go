package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testDebounce = 50 * time.Millisecond

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before a change was reported")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatchDirectory(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := New(testDebounce, dir).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "pkg-"+string(rune('a'+i)))
		if err := os.Mkdir(name, 0755); err != nil {
			t.Fatal(err)
		}
	}
	waitSignal(t, ch)

	// the burst is reported once
	select {
	case <-ch:
		t.Error("burst of changes reported more than once")
	case <-time.After(4 * testDebounce):
	}
}

func TestWatchFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "pacman.log")
	if err := os.WriteFile(logPath, nil, 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := New(testDebounce, logPath).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.log"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ch:
		t.Fatal("change to an unrelated file reported")
	case <-time.After(4 * testDebounce):
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("[2025-03-01T10:00:00+0100] [PACMAN] starting full system upgrade\n")
	f.Close()
	waitSignal(t, ch)
}

func TestWatchNothing(t *testing.T) {
	_, err := New(0, filepath.Join(t.TempDir(), "missing")).Watch(context.Background())
	if !errors.Is(err, ErrNothingToWatch) {
		t.Errorf("Watch() error = %v, want ErrNothingToWatch", err)
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := New(testDebounce, t.TempDir()).Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("unexpected change after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestNewDefaults(t *testing.T) {
	m := New(0, "/a/b/", "/c")
	if m.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", m.debounce, DefaultDebounce)
	}
	if m.targets[0].Path != "/a/b" {
		t.Errorf("path not cleaned: %q", m.targets[0].Path)
	}
}
