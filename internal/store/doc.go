// Package store persists per-window completion counters so restarts do
// not over- or under-post.
//
// Two backends share one contract: a file backend (versioned snapshot +
// fsynced journal) and an SQLite backend. Both refuse to open corrupt
// state; see ErrCorruptState.
package store
