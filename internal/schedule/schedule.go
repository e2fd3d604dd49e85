package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawEntry is one schedule entry as declared in the config file.
//
// Defaults (when fields are omitted/zero):
//   - window_hours: 0 (instant window, open for one polling tick)
//   - max_tasks: 1
type RawEntry struct {
	Time        string  `json:"time"`
	WindowHours float64 `json:"window_hours,omitempty"`
	MaxTasks    int     `json:"max_tasks,omitempty"`
}

// Entry is a validated schedule entry.
//
// ID is deterministic ("HH:MM#idx") so entries with duplicate start times
// keep independent occurrence counters across restarts.
type Entry struct {
	ID       string
	Index    int
	Hour     int
	Minute   int
	Window   time.Duration
	MaxTasks int
}

// StartOn returns the entry's start instant on the given day.
func (e Entry) StartOn(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), e.Hour, e.Minute, 0, 0, day.Location())
}

// OccurrenceOn returns the entry's open interval on the given day. An
// instant window stays open for one grain; the end never crosses the day
// boundary.
func (e Entry) OccurrenceOn(day time.Time, grain time.Duration) (start, end time.Time) {
	start = e.StartOn(day)
	width := e.Window
	if width < grain {
		width = grain
	}
	end = start.Add(width)
	if dayEnd := startOfNextDay(start); end.After(dayEnd) {
		end = dayEnd
	}
	return start, end
}

// ValidationError reports a malformed schedule entry.
// The whole schedule is rejected on the first invalid entry.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schedule entry %d: invalid %s: %s", e.Index, e.Field, e.Reason)
}

// Model is the validated in-memory schedule.
// Entries keep their declared order; earlier-declared entries win ties.
type Model struct {
	entries []Entry
}

// Parse validates raw entries and builds a Model.
// It fails fast: a partially valid schedule is never accepted.
func Parse(raw []RawEntry) (*Model, error) {
	if len(raw) == 0 {
		return nil, &ValidationError{Index: 0, Field: "schedule", Reason: "no entries declared"}
	}

	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		h, m, err := parseHHMM(r.Time)
		if err != nil {
			return nil, &ValidationError{Index: i, Field: "time", Reason: err.Error()}
		}
		if r.WindowHours < 0 {
			return nil, &ValidationError{Index: i, Field: "window_hours", Reason: "must be >= 0"}
		}
		maxTasks := r.MaxTasks
		if maxTasks == 0 {
			maxTasks = 1
		}
		if maxTasks < 1 {
			return nil, &ValidationError{Index: i, Field: "max_tasks", Reason: "must be >= 1"}
		}

		entries = append(entries, Entry{
			ID:       fmt.Sprintf("%02d:%02d#%d", h, m, i),
			Index:    i,
			Hour:     h,
			Minute:   m,
			Window:   time.Duration(r.WindowHours * float64(time.Hour)),
			MaxTasks: maxTasks,
		})
	}
	return &Model{entries: entries}, nil
}

// Entries returns the entries in declared order.
func (m *Model) Entries() []Entry { return m.entries }

// CrossesMidnight reports whether the entry's window, opened on any day,
// would extend past that day's end. Such windows are clamped at the day
// boundary; this is only used to warn the operator at load time.
func (e Entry) CrossesMidnight() bool {
	start := time.Duration(e.Hour)*time.Hour + time.Duration(e.Minute)*time.Minute
	return start+e.Window > 24*time.Hour
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
