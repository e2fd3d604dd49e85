package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	logx "postbot/pkg/logx"
)

func TestAcquireRelease(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	g := New(path, logx.Nop())

	h, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("token file missing: %v", err)
	}

	if err := g.Release(h); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("token file still present after release")
	}

	// Lock can be re-acquired after a clean release.
	if _, err := g.Acquire(); err != nil {
		t.Fatalf("re-Acquire error: %v", err)
	}
}

func TestSecondAcquireFailsWithoutMutatingToken(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	g := New(path, logx.Nop())

	if _, err := g.Acquire(); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	_, err = g.Acquire()
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("err = %v, want *HeldError", err)
	}
	if held.Owner.PID != os.Getpid() {
		t.Fatalf("Owner.PID = %d, want %d", held.Owner.PID, os.Getpid())
	}
	if !held.OwnerAlive {
		t.Fatal("owner (this test process) should be reported alive")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("failed Acquire mutated the existing token")
	}
}

func TestHeldErrorOnForeignToken(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	// Simulate a stale token from a crashed process.
	if err := os.WriteFile(path, []byte(`{"pid":999999999,"hostname":"gone","started_at":"2020-01-01T00:00:00Z"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	g := New(path, logx.Nop())
	_, err := g.Acquire()
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("err = %v, want *HeldError", err)
	}
	if held.OwnerAlive {
		t.Fatal("absurd pid reported alive")
	}
	if held.Age <= 0 {
		t.Fatalf("Age = %v, want positive", held.Age)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	g := New(path, logx.Nop())

	h, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := g.Release(h); err != nil {
			t.Fatalf("Release #%d error: %v", i, err)
		}
	}
	if err := g.Release(nil); err != nil {
		t.Fatalf("Release(nil) error: %v", err)
	}
}

func TestReleaseLeavesForeignToken(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	g := New(path, logx.Nop())

	h, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	// Replace the token as if another instance had rewritten it.
	if err := os.WriteFile(path, []byte(`{"pid":424242,"started_at":"2024-01-01T00:00:00Z"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := g.Release(h); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("foreign token was removed")
	}
}
