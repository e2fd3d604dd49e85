// Package lock enforces that at most one scheduler instance runs at a
// time, using an exclusively created token file.
//
// The token is created with O_CREATE|O_EXCL so two racing processes can
// never both acquire it. A token left behind by a crashed process is
// reported to the operator, never auto-reclaimed: reclaiming would race
// against a live instance that is merely slow.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	logx "postbot/pkg/logx"
)

// Token is the JSON body of the lock file.
type Token struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// HeldError reports that another instance owns the lock. It carries what
// an operator needs to judge staleness.
type HeldError struct {
	Path       string
	Owner      Token
	Age        time.Duration
	OwnerAlive bool
}

func (e *HeldError) Error() string {
	if e.Owner.PID == 0 {
		return fmt.Sprintf("scheduler lock %s is held (owner unreadable): remove it if no other instance is running", e.Path)
	}
	state := "not running"
	if e.OwnerAlive {
		state = "running"
	}
	return fmt.Sprintf("scheduler lock %s is held by pid %d (%s, acquired %s ago): remove the file only if no other instance is running",
		e.Path, e.Owner.PID, state, e.Age.Round(time.Second))
}

// Handle proves ownership of an acquired lock.
type Handle struct {
	path string
	pid  int
}

// Guard manages the lock token at a well-known path.
type Guard struct {
	path string
	log  logx.Logger
}

func New(path string, log logx.Logger) *Guard {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Guard{path: path, log: log}
}

// Acquire atomically creates the token file. If a token already exists,
// it returns *HeldError without touching the existing token.
func (g *Guard) Acquire() (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(g.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if os.IsExist(err) {
		return nil, g.heldError()
	}
	if err != nil {
		return nil, err
	}

	tok := Token{PID: os.Getpid(), StartedAt: time.Now()}
	tok.Hostname, _ = os.Hostname()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		_ = f.Close()
		_ = os.Remove(g.path)
		return nil, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(g.path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(g.path)
		return nil, err
	}

	g.log.Debug("scheduler lock acquired", logx.String("path", g.path), logx.Int("pid", tok.PID))
	return &Handle{path: g.path, pid: tok.PID}, nil
}

// Release removes the token. It is idempotent: releasing an already
// released handle is a no-op, and a token owned by a different pid is
// left in place and reported as a non-fatal inconsistency.
func (g *Guard) Release(h *Handle) error {
	if h == nil {
		return nil
	}

	tok, err := g.readToken()
	if err == nil && tok.PID != 0 && tok.PID != h.pid {
		g.log.Warn("lock token owned by another process, leaving it in place",
			logx.String("path", g.path), logx.Int("owner_pid", tok.PID), logx.Int("pid", h.pid))
		return nil
	}

	if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	g.log.Debug("scheduler lock released", logx.String("path", g.path))
	return nil
}

func (g *Guard) heldError() *HeldError {
	he := &HeldError{Path: g.path}
	tok, err := g.readToken()
	if err != nil {
		return he
	}
	he.Owner = tok
	if !tok.StartedAt.IsZero() {
		he.Age = time.Since(tok.StartedAt)
	}
	he.OwnerAlive = processAlive(tok.PID)
	return he
}

func (g *Guard) readToken() (Token, error) {
	var tok Token
	b, err := os.ReadFile(g.path)
	if err != nil {
		return tok, err
	}
	if err := json.Unmarshal(b, &tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}
