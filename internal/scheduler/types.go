package scheduler

import (
	"time"

	"postbot/internal/media"
)

// State is the loop's coarse lifecycle phase, exposed for status reporting.
type State string

const (
	StateStarting    State = "starting"
	StateWaiting     State = "waiting"
	StateDispatching State = "dispatching"
	StateStopped     State = "stopped"
)

// Config controls the scheduler loop.
type Config struct {
	// PollInterval is the tick period; it is also the resolver grain that
	// keeps instant windows open for one tick.
	PollInterval time.Duration

	// MinPostInterval spaces consecutive uploads inside a wide window.
	// 0 disables pacing.
	MinPostInterval time.Duration

	// ExtraCaption is appended to every post.
	ExtraCaption string

	// RetentionDays bounds stored occurrence history; occurrences older
	// than this many days are pruned nightly. 0 disables pruning.
	RetentionDays int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	return c
}

// MediaQueue is the media-list collaborator as the loop sees it.
// *media.List satisfies it; tests substitute fakes.
type MediaQueue interface {
	NextPending() *media.Item
	MarkProcessed(*media.Item) error
	MarkError(*media.Item) error
	Reload() error
	Counts() media.Counts
	Path() string
}
