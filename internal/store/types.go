package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrCorruptState means the backing state is unreadable or fails its
// integrity checks. It is fatal: silently resetting counters could cause
// duplicate posting, so callers must abort instead of starting fresh.
var ErrCorruptState = errors.New("window task state is corrupt")

// Config configures the window task store.
//
// Driver values:
//   - "file": versioned JSON snapshot + append-only journal (default)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store persists how many tasks have completed in each window occurrence.
//
// Keys are (entryID, date) where date is formatted as YYYY-MM-DD. The store
// is capacity-agnostic: it only counts, the resolver enforces max_tasks.
// Increment must be durable before it returns so a completion recorded
// right before a crash is never double-counted on restart.
type Store interface {
	Count(ctx context.Context, entryID, date string) (int, error)
	Increment(ctx context.Context, entryID, date string) (int, error)

	// Prune drops occurrences whose date sorts before the given day and
	// returns how many were removed.
	Prune(ctx context.Context, before string) (int, error)

	Close() error
}

// Open initializes the configured store. An empty driver selects "file".
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg)
	case "sqlite", "sqlite3":
		return openSQLite(cfg)
	default:
		return nil, errors.New("unknown store driver: " + cfg.Driver)
	}
}

// key joins an occurrence identity. entryID never contains '|'.
func key(entryID, date string) string { return entryID + "|" + date }

// keyDate extracts the date part of an occurrence key.
func keyDate(k string) string {
	if i := strings.LastIndexByte(k, '|'); i >= 0 {
		return k[i+1:]
	}
	return ""
}
