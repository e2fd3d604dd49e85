package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// fileStore is the dependency-free persistence backend.
//
// Files:
//   - <prefix>.snapshot.json  (versioned snapshot with a crc32c checksum)
//   - <prefix>.journal.jsonl  (append-only journal, fsynced per increment)
//
// On open, the snapshot is loaded and the journal replayed over it. The
// journal is periodically compacted into the snapshot. Any structural or
// checksum failure surfaces ErrCorruptState; the store never repairs or
// resets state on its own.
type fileStore struct {
	mu sync.Mutex

	snapshotPath string
	journalPath  string
	journal      *os.File

	counts map[string]int
	writes int
}

const snapshotVersion = 1

// compactEvery bounds journal growth between snapshots.
const compactEvery = 256

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type snapshot struct {
	Version  int            `json:"version"`
	Checksum uint32         `json:"crc32c"`
	Windows  map[string]int `json:"windows"`
}

type journalRecord struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

func openFile(cfg Config) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		snapshotPath: prefix + ".snapshot.json",
		journalPath:  prefix + ".journal.jsonl",
		counts:       map[string]int{},
	}

	if err := s.loadSnapshot(); err != nil {
		return nil, err
	}
	if err := s.replayJournal(); err != nil {
		return nil, err
	}

	jf, err := os.OpenFile(s.journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	s.journal = jf
	return s, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return nil
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}

func (s *fileStore) Count(ctx context.Context, entryID, date string) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key(entryID, date)], nil
}

func (s *fileStore) Increment(ctx context.Context, entryID, date string) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return 0, errors.New("store closed")
	}

	k := key(entryID, date)
	n := s.counts[k] + 1

	// Journal records carry the absolute count so replay is idempotent.
	b, err := json.Marshal(journalRecord{Key: k, Count: n})
	if err != nil {
		return 0, err
	}
	if _, err := s.journal.Write(append(b, '\n')); err != nil {
		return 0, err
	}
	// Durable before ack: a completion must survive a crash right after
	// this call returns.
	if err := s.journal.Sync(); err != nil {
		return 0, err
	}

	s.counts[k] = n
	s.writes++
	if s.writes%compactEvery == 0 {
		_ = s.compactLocked()
	}
	return n, nil
}

func (s *fileStore) Prune(ctx context.Context, before string) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return 0, errors.New("store closed")
	}

	removed := 0
	for k := range s.counts {
		if d := keyDate(k); d != "" && d < before {
			delete(s.counts, k)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.compactLocked(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (s *fileStore) loadSnapshot() error {
	b, err := os.ReadFile(s.snapshotPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("%w: snapshot %s: %v", ErrCorruptState, s.snapshotPath, err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("%w: snapshot %s: unsupported version %d", ErrCorruptState, s.snapshotPath, snap.Version)
	}
	if snap.Windows == nil {
		snap.Windows = map[string]int{}
	}
	if sum := checksumWindows(snap.Windows); sum != snap.Checksum {
		return fmt.Errorf("%w: snapshot %s: checksum mismatch", ErrCorruptState, s.snapshotPath)
	}
	s.counts = snap.Windows
	return nil
}

func (s *fileStore) replayJournal() error {
	f, err := os.Open(s.journalPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r journalRecord
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return fmt.Errorf("%w: journal %s: %v", ErrCorruptState, s.journalPath, err)
		}
		if r.Key == "" || r.Count < 0 {
			return fmt.Errorf("%w: journal %s: malformed record", ErrCorruptState, s.journalPath)
		}
		s.counts[r.Key] = r.Count
	}
	return sc.Err()
}

func (s *fileStore) compactLocked() error {
	snap := snapshot{
		Version:  snapshotVersion,
		Checksum: checksumWindows(s.counts),
		Windows:  s.counts,
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}

	// Everything in the journal is now in the snapshot.
	if err := s.journal.Truncate(0); err != nil {
		return err
	}
	_, err = s.journal.Seek(0, 2)
	return err
}

// checksumWindows hashes the canonical JSON of the counters map. Go sorts
// map keys when marshaling, so the digest is stable for equal contents.
func checksumWindows(m map[string]int) uint32 {
	b, err := json.Marshal(m)
	if err != nil {
		return 0
	}
	return crc32.Checksum(b, castagnoli)
}
