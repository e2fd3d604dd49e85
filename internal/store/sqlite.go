package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db *sql.DB
}

func openSQLite(cfg Config) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	// FULL, not NORMAL: Increment must be durable before it returns.
	_, _ = db.Exec("PRAGMA synchronous = FULL")

	s := &sqliteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		// A migration failure on an existing non-empty database means the
		// file is not (or no longer) ours; treat it as corruption rather
		// than rebuilding over it.
		if st, statErr := os.Stat(path); statErr == nil && st.Size() > 0 {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, path, err)
		}
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Count(ctx context.Context, entryID, date string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT completed FROM window_tasks WHERE entry_id = ? AND date = ?`,
		entryID, date,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *sqliteStore) Increment(ctx context.Context, entryID, date string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO window_tasks(entry_id, date, completed) VALUES(?,?,1)
		 ON CONFLICT(entry_id, date) DO UPDATE SET completed = completed + 1`,
		entryID, date,
	); err != nil {
		return 0, err
	}

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT completed FROM window_tasks WHERE entry_id = ? AND date = ?`,
		entryID, date,
	).Scan(&n); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *sqliteStore) Prune(ctx context.Context, before string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM window_tasks WHERE date < ?`, before)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
