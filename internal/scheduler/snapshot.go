package scheduler

import (
	"context"
	"time"

	"postbot/internal/media"
	"postbot/internal/schedule"
)

// WindowStatus describes one schedule entry's occurrence for today.
type WindowStatus struct {
	ID        string    `json:"id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	MaxTasks  int       `json:"max_tasks"`
	Completed int       `json:"completed"`
	Open      bool      `json:"open"`
}

// Snapshot is a point-in-time view for the status API.
type Snapshot struct {
	State      State          `json:"state"`
	LastTick   time.Time      `json:"last_tick,omitzero"`
	LastPost   time.Time      `json:"last_post,omitzero"`
	Uploaded   int            `json:"uploaded"`
	Failed     int            `json:"failed"`
	NextWindow time.Time      `json:"next_window,omitzero"`
	Windows    []WindowStatus `json:"windows"`
	Media      media.Counts   `json:"media"`
}

// Snapshot assembles the current scheduler view. Store reads are
// best-effort; a failing store leaves counters at zero rather than
// failing the status endpoint.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	now := s.now()

	s.mu.Lock()
	snap := Snapshot{
		State:    s.state,
		LastTick: s.lastTick,
		LastPost: s.lastPost,
		Uploaded: s.uploaded,
		Failed:   s.failed,
	}
	s.mu.Unlock()

	snap.NextWindow = s.resolver.NextStart(now)
	snap.Media = s.media.Counts()

	for _, e := range s.model.Entries() {
		start, end := e.OccurrenceOn(now, s.cfg.PollInterval)
		done, _ := s.store.Count(ctx, e.ID, start.Format(schedule.DateKey))
		snap.Windows = append(snap.Windows, WindowStatus{
			ID:        e.ID,
			Start:     start,
			End:       end,
			MaxTasks:  e.MaxTasks,
			Completed: done,
			Open:      !now.Before(start) && now.Before(end) && done < e.MaxTasks,
		})
	}
	return snap
}
