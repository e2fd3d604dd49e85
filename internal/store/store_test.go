package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, driver, path string) Store {
	t.Helper()
	s, err := Open(Config{Driver: driver, Path: path})
	if err != nil {
		t.Fatalf("Open(%s) error: %v", driver, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreDrivers(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "window_tasks")

			s := openTestStore(t, driver, path)

			// First run: unknown occurrences read as zero.
			n, err := s.Count(ctx, "13:00#0", "2024-03-01")
			if err != nil || n != 0 {
				t.Fatalf("Count = %d, %v; want 0, nil", n, err)
			}

			// Count is read-only: repeated queries do not create state.
			for i := 0; i < 3; i++ {
				if n, _ := s.Count(ctx, "13:00#0", "2024-03-01"); n != 0 {
					t.Fatalf("Count mutated state: %d", n)
				}
			}

			if n, err = s.Increment(ctx, "13:00#0", "2024-03-01"); err != nil || n != 1 {
				t.Fatalf("Increment = %d, %v; want 1, nil", n, err)
			}
			if n, err = s.Increment(ctx, "13:00#0", "2024-03-01"); err != nil || n != 2 {
				t.Fatalf("Increment = %d, %v; want 2, nil", n, err)
			}

			// Occurrences are independent per entry and per day.
			if n, _ = s.Increment(ctx, "19:00#1", "2024-03-01"); n != 1 {
				t.Fatalf("other entry count = %d, want 1", n)
			}
			if n, _ = s.Count(ctx, "13:00#0", "2024-03-02"); n != 0 {
				t.Fatalf("other day count = %d, want 0", n)
			}

			// Durability: counts survive close + reopen.
			if err := s.Close(); err != nil {
				t.Fatalf("Close error: %v", err)
			}
			s = openTestStore(t, driver, path)
			if n, _ = s.Count(ctx, "13:00#0", "2024-03-01"); n != 2 {
				t.Fatalf("count after reopen = %d, want 2", n)
			}
		})
	}
}

func TestStorePrune(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "window_tasks")
			s := openTestStore(t, driver, path)

			for _, date := range []string{"2024-01-01", "2024-02-01", "2024-03-01"} {
				if _, err := s.Increment(ctx, "09:00#0", date); err != nil {
					t.Fatalf("Increment error: %v", err)
				}
			}

			removed, err := s.Prune(ctx, "2024-02-15")
			if err != nil {
				t.Fatalf("Prune error: %v", err)
			}
			if removed != 2 {
				t.Fatalf("Prune removed %d, want 2", removed)
			}
			if n, _ := s.Count(ctx, "09:00#0", "2024-03-01"); n != 1 {
				t.Fatalf("recent occurrence lost: %d", n)
			}
			if n, _ := s.Count(ctx, "09:00#0", "2024-01-01"); n != 0 {
				t.Fatalf("pruned occurrence still counted: %d", n)
			}

			// Pruned state stays pruned across reopen.
			_ = s.Close()
			s = openTestStore(t, driver, path)
			if n, _ := s.Count(ctx, "09:00#0", "2024-01-01"); n != 0 {
				t.Fatalf("pruned occurrence resurrected: %d", n)
			}
		})
	}
}

func TestFileStoreJournalReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "window_tasks")

	s := openTestStore(t, "file", path)
	for i := 0; i < 5; i++ {
		if _, err := s.Increment(ctx, "13:00#0", "2024-03-01"); err != nil {
			t.Fatalf("Increment error: %v", err)
		}
	}
	// Close without forcing a compact: state must come back from the
	// journal alone.
	_ = s.Close()

	s = openTestStore(t, "file", path)
	if n, _ := s.Count(ctx, "13:00#0", "2024-03-01"); n != 5 {
		t.Fatalf("replayed count = %d, want 5", n)
	}
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "window_tasks")

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "???"},
		{name: "bad version", body: `{"version":99,"crc32c":0,"windows":{}}`},
		{name: "bad checksum", body: `{"version":1,"crc32c":12345,"windows":{"13:00#0|2024-03-01":2}}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(path+".snapshot.json", []byte(tt.body), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Open(Config{Driver: "file", Path: path})
			if !errors.Is(err, ErrCorruptState) {
				t.Fatalf("err = %v, want ErrCorruptState", err)
			}
		})
	}
}

func TestFileStoreCorruptJournal(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "window_tasks")
	if err := os.WriteFile(path+".journal.jsonl", []byte("{\"key\":\"a|2024-01-01\",\"count\":1}\ngarbage\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Open(Config{Driver: "file", Path: path})
	if !errors.Is(err, ErrCorruptState) {
		t.Fatalf("err = %v, want ErrCorruptState", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis", Path: "x"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
