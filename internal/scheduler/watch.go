package scheduler

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	logx "postbot/pkg/logx"
)

// watchMediaList reloads the media list when it changes on disk, so an
// operator can append rows without restarting the scheduler. The watch is
// best-effort; every tick still works off the last successfully loaded
// list if the watcher cannot be set up.
func (s *Service) watchMediaList(ctx context.Context) func() {
	path := s.media.Path()
	if path == "" {
		return func() {}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn("media list watcher unavailable", logx.Err(err))
		return func() {}
	}

	// Watch the directory: editors and our own atomic saves replace the
	// file by rename, which drops a watch on the file itself.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		s.log.Warn("media list watcher unavailable", logx.String("dir", dir), logx.Err(err))
		_ = w.Close()
		return func() {}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case s.reload <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("media list watcher error", logx.Err(err))
			}
		}
	}()

	return func() { _ = w.Close() }
}
