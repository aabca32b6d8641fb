package updates

import (
	"context"
	"time"

	"archupdates/internal/logger"
	"archupdates/pkg/news"
)

// NewsFeed fetches news entries. *news.Client satisfies it.
type NewsFeed interface {
	Fetch(ctx context.Context) ([]news.Item, error)
}

// SinceSources supplies the two inputs of the news cutoff.
type SinceSources struct {
	// LastUpgrade returns the time of the last full system upgrade.
	LastUpgrade func() (time.Time, error)
	// LastRead returns when news was last marked as read.
	LastRead func() (time.Time, error)
}

// NewsSince returns the later of the last full upgrade and the last time news
// was marked read. A failing input is logged and left out; when both fail the
// zero time is returned, which selects all news.
func NewsSince(src SinceSources) time.Time {
	var since time.Time
	for name, fn := range map[string]func() (time.Time, error){
		"last upgrade":   src.LastUpgrade,
		"last news read": src.LastRead,
	} {
		if fn == nil {
			continue
		}
		t, err := fn()
		if err != nil {
			logger.Debug("ignoring %s time: %v", name, err)
			continue
		}
		if t.After(since) {
			since = t
		}
	}
	return since
}
