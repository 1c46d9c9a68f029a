// Package state holds the bot's cursors in memory and flushes them to a
// storage.Store.
package state

import (
	"context"
	"sync"
	"time"

	"windfarm/internal/storage"
	logx "windfarm/pkg/logx"
)

// Cursor names.
const (
	LastTweetTime   = "last_tweet_time"
	LastMentionTime = "last_mention_time"
	LastMentionID   = "last_mention_id"
	LastSearchTime  = "last_search_time"
	LastSearchID    = "last_search_id"
)

// Cursors is the live cursor map. Every Flush writes the full snapshot and
// flushes are serialized, so tasks flushing concurrently never drop each
// other's keys.
type Cursors struct {
	store storage.Store
	log   logx.Logger

	mu sync.RWMutex
	m  map[string]int64

	saveMu sync.Mutex
}

// Load reads the stored snapshot.
func Load(ctx context.Context, store storage.Store, log logx.Logger) (*Cursors, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	m, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]int64{}
	}
	c := &Cursors{store: store, log: log.With(logx.String("comp", "state")), m: m}
	c.log.Debug("state loaded", logx.Any("cursors", c.Snapshot()))
	return c, nil
}

// Get returns the cursor value, or 0 if unset.
func (c *Cursors) Get(key string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[key]
}

func (c *Cursors) Set(key string, v int64) {
	c.mu.Lock()
	c.m[key] = v
	c.mu.Unlock()
}

// Time reads a unix-seconds cursor. Unset cursors return the zero time.
func (c *Cursors) Time(key string) time.Time {
	v := c.Get(key)
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}

func (c *Cursors) SetTime(key string, t time.Time) { c.Set(key, t.Unix()) }

// Snapshot returns a copy of the cursor map.
func (c *Cursors) Snapshot() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}



// Flush persists the current snapshot.
func (c *Cursors) Flush(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	// Snapshot under the save lock so a later flush never writes older data.
	snap := c.Snapshot()
	if err := c.store.Save(ctx, snap); err != nil {
		c.log.Warn("state flush failed", logx.Err(err))
		return err
	}
	return nil
}
