// Package media reads and updates the media-list CSV.
//
// The list is a plain CSV with columns file_path, caption and _STATUS_.
// An empty (or unknown) status means pending; PROCESSED and ERROR are
// terminal. Status updates rewrite the whole file atomically so an
// external editor or a crash never sees a half-written list.
package media

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sync"

	logx "postbot/pkg/logx"
)

const (
	StatusPending   = ""
	StatusProcessed = "PROCESSED"
	StatusError     = "ERROR"

	statusColumn = "_STATUS_"
)

// IsPending reports whether a status value represents a pending item.
// Anything that is not explicitly terminal counts as pending.
func IsPending(status string) bool {
	return status != StatusProcessed && status != StatusError
}

// Item is one row of the media list.
type Item struct {
	FilePath string
	Caption  string
	Status   string

	row int
}

// Counts summarizes list progress.
type Counts struct {
	Pending   int `json:"pending"`
	Processed int `json:"processed"`
	Errored   int `json:"errored"`
}

// List is the in-memory view of the media-list CSV. Unknown extra columns
// are preserved verbatim across rewrites.
type List struct {
	path string
	log  logx.Logger

	mu     sync.Mutex
	header []string
	rows   [][]string

	fileCol    int
	captionCol int
	statusCol  int
}

// Load reads and validates the media list.
func Load(path string, log logx.Logger) (*List, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	l := &List{path: path, log: log}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the file, picking up concurrent edits. Row handles from
// before the reload are re-matched by file path when marking.
func (l *List) Reload() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("media list: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows, pad below
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("media list %s: invalid CSV: %w", l.path, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("media list %s: file is empty", l.path)
	}

	header := records[0]
	fileCol, captionCol, statusCol := -1, -1, -1
	for i, name := range header {
		switch name {
		case "file_path":
			fileCol = i
		case "caption":
			captionCol = i
		case statusColumn:
			statusCol = i
		}
	}
	if fileCol < 0 || captionCol < 0 {
		return fmt.Errorf("media list %s: missing required columns (need file_path, caption)", l.path)
	}
	if statusCol < 0 {
		header = append(append([]string(nil), header...), statusColumn)
		statusCol = len(header) - 1
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}

	l.mu.Lock()
	l.header = header
	l.rows = rows
	l.fileCol = fileCol
	l.captionCol = captionCol
	l.statusCol = statusCol
	l.mu.Unlock()
	return nil
}

// NextPending returns the first pending item in file order, or nil.
func (l *List) NextPending() *Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, row := range l.rows {
		if IsPending(row[l.statusCol]) {
			return &Item{
				FilePath: row[l.fileCol],
				Caption:  row[l.captionCol],
				Status:   row[l.statusCol],
				row:      i,
			}
		}
	}
	return nil
}

// MarkProcessed records a successful upload and persists the list.
func (l *List) MarkProcessed(it *Item) error { return l.mark(it, StatusProcessed) }

// MarkError records a failed upload and persists the list.
func (l *List) MarkError(it *Item) error { return l.mark(it, StatusError) }

func (l *List) mark(it *Item, status string) error {
	if it == nil {
		return errors.New("media list: nil item")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	row := -1
	if it.row >= 0 && it.row < len(l.rows) && l.rows[it.row][l.fileCol] == it.FilePath {
		row = it.row
	} else {
		// The file changed underneath us; re-match by path.
		for i, r := range l.rows {
			if r[l.fileCol] == it.FilePath && IsPending(r[l.statusCol]) {
				row = i
				break
			}
		}
	}
	if row < 0 {
		return fmt.Errorf("media list: item %s not found", it.FilePath)
	}

	prev := l.rows[row][l.statusCol]
	l.rows[row][l.statusCol] = status
	if err := l.saveLocked(); err != nil {
		l.rows[row][l.statusCol] = prev
		return err
	}
	it.Status = status
	l.log.Info("media item marked", logx.String("file", it.FilePath), logx.String("status", status))
	return nil
}

// Counts reports pending/processed/errored totals.
func (l *List) Counts() Counts {
	l.mu.Lock()
	defer l.mu.Unlock()
	var c Counts
	for _, row := range l.rows {
		switch row[l.statusCol] {
		case StatusProcessed:
			c.Processed++
		case StatusError:
			c.Errored++
		default:
			c.Pending++
		}
	}
	return c
}

// Path returns the backing file path.
func (l *List) Path() string { return l.path }

func (l *List) saveLocked() error {
	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(l.header); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.WriteAll(l.rows); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
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
	return os.Rename(tmp, l.path)
}

// Write creates a fresh media list at path from the given items. Used by
// caption mode to emit an upload-ready list.
func Write(path string, items []Item) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"file_path", "caption", statusColumn}); err != nil {
		_ = f.Close()
		return err
	}
	for _, it := range items {
		if err := w.Write([]string{it.FilePath, it.Caption, it.Status}); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
