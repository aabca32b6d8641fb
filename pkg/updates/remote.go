package updates

import (
	"sync"
	"time"

	"archupdates/internal/logger"
	"archupdates/pkg/news"
)

// RemoteData is what an online check learned from the network. Offline
// checks recompute updates from it against freshly read local state.
type RemoteData struct {
	AUR            map[string]AURRemote   `json:"aur,omitempty"`
	AURFetchedAt   time.Time              `json:"aur_fetched_at"`
	Devel          map[string]DevelRemote `json:"devel,omitempty"`
	DevelFetchedAt time.Time              `json:"devel_fetched_at"`
	News           []news.Item            `json:"news,omitempty"`
	NewsFetchedAt  time.Time              `json:"news_fetched_at"`
}

// RemoteStore persists RemoteData between runs. *state.Store satisfies it.
type RemoteStore interface {
	LoadRemote() (*RemoteData, error)
	SaveRemote(data *RemoteData) error
}

// remoteCache holds the latest RemoteData in memory, loading it from the
// store on first use.
type remoteCache struct {
	mu     sync.Mutex
	store  RemoteStore
	data   RemoteData
	loaded bool
}

func (c *remoteCache) load() {
	if c.loaded {
		return
	}
	c.loaded = true
	if c.store == nil {
		return
	}
	data, err := c.store.LoadRemote()
	if err != nil {
		logger.Warn("failed to load cached remote data: %v", err)
		return
	}
	if data != nil {
		c.data = *data
	}
}

// get returns a copy of the cached data. Maps and slices are shared and must
// not be modified by the caller.
func (c *remoteCache) get() RemoteData {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	return c.data
}

// update applies fn to the cached data and persists the result.
func (c *remoteCache) update(fn func(*RemoteData)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	fn(&c.data)
	if c.store == nil {
		return
	}
	snapshot := c.data
	if err := c.store.SaveRemote(&snapshot); err != nil {
		logger.Warn("failed to persist remote data: %v", err)
	}
}
