package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"postbot/internal/schedule"
	logx "postbot/pkg/logx"
)

// pruneSpec runs nightly, well away from typical posting windows.
const pruneSpec = "0 4 * * *"

// startPrune schedules the nightly retention job that drops window
// occurrences older than RetentionDays. Occurrence records otherwise grow
// by one per entry per day, forever.
func (s *Service) startPrune() func() {
	if s.cfg.RetentionDays <= 0 {
		return func() {}
	}

	c := cron.New()
	_, err := c.AddFunc(pruneSpec, func() { s.pruneOnce() })
	if err != nil {
		// Spec is a constant; this only fires if someone breaks it.
		s.log.Error("retention job not scheduled", logx.Err(err))
		return func() {}
	}
	c.Start()
	s.log.Debug("retention job scheduled", logx.Int("retention_days", s.cfg.RetentionDays))

	return func() { <-c.Stop().Done() }
}

func (s *Service) pruneOnce() {
	before := s.now().AddDate(0, 0, -s.cfg.RetentionDays).Format(schedule.DateKey)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.store.Prune(ctx, before)
	if err != nil {
		s.log.Warn("occurrence prune failed", logx.String("before", before), logx.Err(err))
		return
	}
	if n > 0 {
		s.log.Info("pruned old window occurrences", logx.String("before", before), logx.Int("removed", n))
	}
}
