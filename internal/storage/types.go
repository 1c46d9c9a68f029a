package storage

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// If Driver is empty or "none", Open returns a memory store.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store loads and saves the full cursor snapshot.
//
// Save replaces the stored snapshot with m. Keys missing from m are removed.
type Store interface {
	Load(ctx context.Context) (map[string]int64, error)
	Save(ctx context.Context, m map[string]int64) error
	Close() error
}

func cloneMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
