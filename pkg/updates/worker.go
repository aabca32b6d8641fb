package updates

import (
	"context"
	"time"
)

const (
	// DefaultInterval is the period of offline checks.
	DefaultInterval = 6 * time.Second
	// DefaultOnlinePeriod is the number of intervals between online checks.
	DefaultOnlinePeriod = 600
)

// Checks is what a Worker drives. *Checker satisfies it.
type Checks interface {
	Refresh(ctx context.Context, since time.Time) Snapshot
	RefreshOffline(ctx context.Context, since time.Time) Snapshot
}

// EventKind tells what a worker event reports.
type EventKind int

const (
	// EventStarted is sent when a check begins.
	EventStarted EventKind = iota
	// EventFinished carries the snapshot of a completed check.
	EventFinished
)

// Event reports worker progress.
type Event struct {
	Kind     EventKind
	Mode     Mode
	Snapshot Snapshot
}

// WorkerOptions configures a Worker. Zero values select the defaults.
type WorkerOptions struct {
	Interval     time.Duration
	OnlinePeriod int
	// Since returns the news cutoff for each cycle. Nil reports all news.
	Since func() time.Time
}

// Worker runs checks periodically: the first tick and every OnlinePeriod-th
// tick after it go online, the others recompute offline. Checks never
// overlap; requests arriving during a check are served after it.
type Worker struct {
	checks  Checks
	opts    WorkerOptions
	refresh chan struct{}
	recheck chan struct{}
}

// NewWorker creates a Worker.
func NewWorker(checks Checks, opts WorkerOptions) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.OnlinePeriod <= 0 {
		opts.OnlinePeriod = DefaultOnlinePeriod
	}
	if opts.Since == nil {
		opts.Since = func() time.Time { return time.Time{} }
	}
	return &Worker{
		checks:  checks,
		opts:    opts,
		refresh: make(chan struct{}, 1),
		recheck: make(chan struct{}, 1),
	}
}

// Refresh requests an online check as soon as possible and restarts the
// online period.
func (w *Worker) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// Recheck requests an offline check as soon as possible, for instance after
// the local package database changed.
func (w *Worker) Recheck() {
	select {
	case w.recheck <- struct{}{}:
	default:
	}
}

// Run checks until ctx is done, sending events on out. It closes out on
// return.
func (w *Worker) Run(ctx context.Context, out chan<- Event) {
	defer close(out)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	// tick counts intervals since the last online check. The first check
	// is online so offline ones have remote data to work from.
	tick := 0

	run := func(mode Mode) bool {
		if !send(ctx, out, Event{Kind: EventStarted, Mode: mode}) {
			return false
		}
		var snap Snapshot
		if mode == ModeOnline {
			snap = w.checks.Refresh(ctx, w.opts.Since())
			tick = 0
		} else {
			snap = w.checks.RefreshOffline(ctx, w.opts.Since())
		}
		if ctx.Err() != nil {
			return false
		}
		return send(ctx, out, Event{Kind: EventFinished, Mode: mode, Snapshot: snap})
	}

	if !run(ModeOnline) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.refresh:
			if !run(ModeOnline) {
				return
			}
			ticker.Reset(w.opts.Interval)
		case <-w.recheck:
			if !run(ModeOffline) {
				return
			}
		case <-ticker.C:
			tick++
			mode := ModeOffline
			if tick >= w.opts.OnlinePeriod {
				mode = ModeOnline
			}
			if !run(mode) {
				return
			}
		}
	}
}

func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
