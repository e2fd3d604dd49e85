package schedule

import (
	"context"
	"time"
)

// DateKey is the calendar-day format used to key window occurrences.
const DateKey = "2006-01-02"

// CountReader is the read-only store view the resolver needs.
type CountReader interface {
	Count(ctx context.Context, entryID, date string) (int, error)
}

// Window is a concrete occurrence of a schedule entry that is open and has
// remaining capacity at the queried instant.
type Window struct {
	Entry     Entry
	Date      string // calendar day of the occurrence (DateKey format)
	Start     time.Time
	End       time.Time
	Completed int
}

// Remaining returns how many more tasks the occurrence may run.
func (w *Window) Remaining() int { return w.Entry.MaxTasks - w.Completed }

// Resolver computes the currently eligible window from the schedule and the
// persisted occurrence counts. It never writes.
type Resolver struct {
	model  *Model
	counts CountReader
	grain  time.Duration
}

// NewResolver builds a resolver. grain is the polling interval; an instant
// window (window_hours 0) stays open for one grain so a poll cannot step
// over it.
func NewResolver(model *Model, counts CountReader, grain time.Duration) *Resolver {
	if grain <= 0 {
		grain = time.Minute
	}
	return &Resolver{model: model, counts: counts, grain: grain}
}

// FindEligible returns the first declared entry whose window is open at now
// and whose occurrence still has capacity, or nil when none qualifies.
//
// Windows never cross the day boundary: an occurrence's end is clamped to
// the end of its start's calendar day.
func (r *Resolver) FindEligible(ctx context.Context, now time.Time) (*Window, error) {
	for _, e := range r.model.Entries() {
		start, end := e.OccurrenceOn(now, r.grain)
		if now.Before(start) || !now.Before(end) {
			continue
		}

		date := start.Format(DateKey)
		done, err := r.counts.Count(ctx, e.ID, date)
		if err != nil {
			return nil, err
		}
		if done >= e.MaxTasks {
			continue
		}

		return &Window{Entry: e, Date: date, Start: start, End: end, Completed: done}, nil
	}
	return nil, nil
}

// NextStart returns the next window start strictly after now, looking at
// today's remaining entries and then tomorrow's first entry. Used for the
// status API; the polling loop itself does not sleep until this instant.
func (r *Resolver) NextStart(now time.Time) time.Time {
	var next time.Time
	for _, e := range r.model.Entries() {
		for _, day := range []time.Time{now, now.AddDate(0, 0, 1)} {
			s := e.StartOn(day)
			if !s.After(now) {
				continue
			}
			if next.IsZero() || s.Before(next) {
				next = s
			}
		}
	}
	return next
}

func startOfNextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
