package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	logx "postbot/pkg/logx"
)

func writeList(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "media_list.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndNextPending(t *testing.T) {
	t.Parallel()
	path := writeList(t, "file_path,caption,_STATUS_\na.jpg,hello,PROCESSED\nb.jpg,,\nc.jpg,third,\n")
	l, err := Load(path, logx.Nop())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	it := l.NextPending()
	if it == nil || it.FilePath != "b.jpg" {
		t.Fatalf("NextPending = %+v, want b.jpg", it)
	}
	if it.Caption != "" {
		t.Fatalf("Caption = %q, want empty (triggers generation)", it.Caption)
	}

	c := l.Counts()
	if c.Pending != 2 || c.Processed != 1 || c.Errored != 0 {
		t.Fatalf("Counts = %+v", c)
	}
}

func TestMissingStatusColumnIsAdded(t *testing.T) {
	t.Parallel()
	path := writeList(t, "file_path,caption\na.jpg,hi\n")
	l, err := Load(path, logx.Nop())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	it := l.NextPending()
	if it == nil || it.FilePath != "a.jpg" {
		t.Fatalf("NextPending = %+v", it)
	}
	if err := l.MarkProcessed(it); err != nil {
		t.Fatalf("MarkProcessed error: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "_STATUS_") {
		t.Fatalf("status column not written: %s", b)
	}
	if !strings.Contains(string(b), "PROCESSED") {
		t.Fatalf("status value not written: %s", b)
	}
}

func TestMarkPersistsAcrossReload(t *testing.T) {
	t.Parallel()
	path := writeList(t, "file_path,caption,_STATUS_\na.jpg,one,\nb.jpg,two,\n")
	l, err := Load(path, logx.Nop())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	it := l.NextPending()
	if err := l.MarkError(it); err != nil {
		t.Fatalf("MarkError error: %v", err)
	}

	// Fresh load sees the mark.
	l2, err := Load(path, logx.Nop())
	if err != nil {
		t.Fatalf("re-Load error: %v", err)
	}
	next := l2.NextPending()
	if next == nil || next.FilePath != "b.jpg" {
		t.Fatalf("NextPending after mark = %+v, want b.jpg", next)
	}
	c := l2.Counts()
	if c.Errored != 1 || c.Pending != 1 {
		t.Fatalf("Counts = %+v", c)
	}
}

func TestMarkRematchesAfterReload(t *testing.T) {
	t.Parallel()
	path := writeList(t, "file_path,caption,_STATUS_\na.jpg,one,\nb.jpg,two,\n")
	l, err := Load(path, logx.Nop())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	it := l.NextPending()

	// A new row is prepended behind our back; the stale row index must not
	// mark the wrong item.
	if err := os.WriteFile(path, []byte("file_path,caption,_STATUS_\nz.jpg,new,\na.jpg,one,\nb.jpg,two,\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := l.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if err := l.MarkProcessed(it); err != nil {
		t.Fatalf("MarkProcessed error: %v", err)
	}

	l2, err := Load(path, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	c := l2.Counts()
	if c.Processed != 1 {
		t.Fatalf("Counts = %+v, want exactly one processed", c)
	}
	if got := l2.NextPending(); got == nil || got.FilePath != "z.jpg" {
		t.Fatalf("NextPending = %+v, want z.jpg untouched", got)
	}
}

func TestUnknownStatusCountsAsPending(t *testing.T) {
	t.Parallel()
	path := writeList(t, "file_path,caption,_STATUS_\na.jpg,one,RETRY_ME\n")
	l, err := Load(path, logx.Nop())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if it := l.NextPending(); it == nil || it.FilePath != "a.jpg" {
		t.Fatalf("unknown status should be pending, got %+v", it)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{name: "empty file", body: ""},
		{name: "missing columns", body: "path,text\na.jpg,hi\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := writeList(t, tt.body)
			if _, err := Load(path, logx.Nop()); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.csv"), logx.Nop()); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "out.csv")
	items := []Item{
		{FilePath: "a.jpg", Caption: "a sunset, vivid"},
		{FilePath: "b.mp4", Caption: ""},
	}
	if err := Write(path, items); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	l, err := Load(path, logx.Nop())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c := l.Counts(); c.Pending != 2 {
		t.Fatalf("Counts = %+v, want 2 pending", c)
	}
	if it := l.NextPending(); it.Caption != "a sunset, vivid" {
		t.Fatalf("Caption = %q", it.Caption)
	}
}
