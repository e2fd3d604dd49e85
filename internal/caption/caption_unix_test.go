//go:build unix

package caption

import (
	"context"
	"testing"
)

func TestStatic(t *testing.T) {
	t.Parallel()
	got, err := Static("hello").Generate(context.Background(), "a.jpg")
	if err != nil || got != "hello" {
		t.Fatalf("Generate = %q, %v", got, err)
	}
}

func TestExecGeneratorReadsStdout(t *testing.T) {
	t.Parallel()
	// The media path arrives as the last argument ($1 here).
	g := &ExecGenerator{Command: []string{"sh", "-c", `printf 'a caption for %s\n' "$1"`, "captioner"}}
	got, err := g.Generate(context.Background(), "a.jpg")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if got != "a caption for a.jpg" {
		t.Fatalf("Generate = %q", got)
	}
}

func TestExecGeneratorFailure(t *testing.T) {
	t.Parallel()
	g := &ExecGenerator{Command: []string{"sh", "-c", "echo oops >&2; exit 1", "captioner"}}
	if _, err := g.Generate(context.Background(), "a.jpg"); err == nil {
		t.Fatal("want error on nonzero exit")
	}
}

func TestExecGeneratorNoCommand(t *testing.T) {
	t.Parallel()
	g := &ExecGenerator{}
	if _, err := g.Generate(context.Background(), "a.jpg"); err == nil {
		t.Fatal("want error when no command configured")
	}
}
