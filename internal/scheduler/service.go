package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"postbot/internal/caption"
	"postbot/internal/lock"
	"postbot/internal/media"
	"postbot/internal/schedule"
	"postbot/internal/store"
	"postbot/internal/uploader"
	logx "postbot/pkg/logx"
)

// Service drives the polling loop: acquire the lock once, then on every
// tick resolve the eligible window and dispatch at most one upload.
//
// Everything runs on the loop goroutine; at most one upload is ever in
// flight. The only cross-process concern is the startup lock.
type Service struct {
	log      logx.Logger
	cfg      Config
	resolver *schedule.Resolver
	model    *schedule.Model
	store    store.Store
	media    MediaQueue
	up       uploader.Uploader
	captions caption.Generator
	lock     *lock.Guard
	notify   Events

	limiter *rate.Limiter
	reload  chan struct{}

	// now is swappable for tests.
	now func() time.Time

	mu       sync.Mutex
	state    State
	lastTick time.Time
	lastPost time.Time
	uploaded int
	failed   int
}

// Events receives posting outcomes. All methods must be safe on a nil
// receiver; *notifier.Notifier satisfies this.
type Events interface {
	PostSuccess(file, windowID string, completed, maxTasks int)
	PostFailure(file string, err error)
	Fatal(err error)
}

// nopEvents is used when no notifier is configured.
type nopEvents struct{}

func (nopEvents) PostSuccess(string, string, int, int) {}
func (nopEvents) PostFailure(string, error)            {}
func (nopEvents) Fatal(error)                          {}

// New wires the scheduler loop. lockGuard may be nil (single-upload mode
// and tests); captions may be nil when generation is not configured.
func New(cfg Config, log logx.Logger, model *schedule.Model, st store.Store, mq MediaQueue, up uploader.Uploader, gen caption.Generator, lockGuard *lock.Guard, ev Events) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	if gen == nil {
		gen = caption.Static("")
	}
	if ev == nil {
		ev = nopEvents{}
	}

	s := &Service{
		log:      log,
		cfg:      cfg,
		model:    model,
		resolver: schedule.NewResolver(model, st, cfg.PollInterval),
		store:    st,
		media:    mq,
		up:       up,
		captions: gen,
		lock:     lockGuard,
		notify:   ev,
		reload:   make(chan struct{}, 1),
		now:      time.Now,
		state:    StateStarting,
	}
	if cfg.MinPostInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(cfg.MinPostInterval), 1)
	}
	return s
}

// Run blocks until ctx is cancelled or an unrecoverable error occurs.
// A held lock is fatal and returned as *lock.HeldError; the caller prints
// the operator remediation.
func (s *Service) Run(ctx context.Context) error {
	s.setState(StateStarting)

	if s.lock != nil {
		h, err := s.lock.Acquire()
		if err != nil {
			s.setState(StateStopped)
			return err
		}
		// Released on every exit path. A hard crash can still leave a
		// stale token; that is documented operator-recoverable behavior.
		defer func() { _ = s.lock.Release(h) }()
	}

	sdNotifyReady(s.log)
	defer sdNotifyStopping(s.log)

	stopPrune := s.startPrune()
	defer stopPrune()

	stopWatch := s.watchMediaList(ctx)
	defer stopWatch()

	s.log.Info("scheduler started",
		logx.Duration("poll_interval", s.cfg.PollInterval),
		logx.Int("schedule_entries", len(s.model.Entries())),
		logx.String("media_list", s.media.Path()))

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	// First tick immediately so a window open at startup is not missed.
	if err := s.tick(ctx); err != nil {
		s.notify.Fatal(err)
		s.setState(StateStopped)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			s.setState(StateStopped)
			return nil
		case <-s.reload:
			if err := s.media.Reload(); err != nil {
				s.log.Warn("media list reload failed", logx.Err(err))
			} else {
				s.log.Debug("media list reloaded")
			}
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				s.notify.Fatal(err)
				s.setState(StateStopped)
				return err
			}
		}
	}
}

// tick performs one poll cycle. A non-nil error is unrecoverable and
// stops the loop; per-item upload failures are contained here.
func (s *Service) tick(ctx context.Context) error {
	now := s.now()
	s.mu.Lock()
	s.lastTick = now
	s.mu.Unlock()

	w, err := s.resolver.FindEligible(ctx, now)
	if err != nil {
		// Store trouble means counters can no longer be trusted; carrying
		// on could double-post.
		return err
	}
	if w == nil {
		s.setState(StateWaiting)
		return nil
	}

	s.setState(StateDispatching)
	defer s.setState(StateWaiting)

	item := s.media.NextPending()
	if item == nil {
		s.log.Debug("window open but no pending media", logx.String("window", w.Entry.ID))
		return nil
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.log.Debug("pacing: postponing upload to a later tick", logx.String("file", item.FilePath))
		return nil
	}

	text, err := s.resolveCaption(ctx, item)
	if err != nil {
		s.log.Error("caption generation failed", logx.String("file", item.FilePath), logx.Err(err))
		s.failItem(item, err)
		return nil
	}

	s.log.Info("dispatching upload",
		logx.String("file", item.FilePath),
		logx.String("window", w.Entry.ID),
		logx.Int("completed", w.Completed),
		logx.Int("max_tasks", w.Entry.MaxTasks))

	if err := s.up.Upload(ctx, item.FilePath, text); err != nil {
		// Failed attempts do not consume window capacity; the item is
		// excluded from retries via its ERROR status instead.
		s.failItem(item, err)
		return nil
	}

	// Count the completion before marking the item: after a crash in
	// between, re-marking the item is acceptable, double counting is not.
	n, err := s.store.Increment(ctx, w.Entry.ID, w.Date)
	if err != nil {
		if errors.Is(err, store.ErrCorruptState) {
			return err
		}
		// The post went out; keep the item out of the queue even though
		// the counter update was lost.
		s.log.Error("completion not recorded", logx.String("window", w.Entry.ID), logx.Err(err))
		n = w.Completed + 1
	}

	if err := s.media.MarkProcessed(item); err != nil {
		s.log.Warn("failed to mark media item processed", logx.String("file", item.FilePath), logx.Err(err))
	}

	s.mu.Lock()
	s.uploaded++
	s.lastPost = now
	s.mu.Unlock()

	s.notify.PostSuccess(item.FilePath, w.Entry.ID, n, w.Entry.MaxTasks)
	s.log.Info("window slot consumed",
		logx.String("window", w.Entry.ID),
		logx.String("date", w.Date),
		logx.Int("completed", n),
		logx.Int("max_tasks", w.Entry.MaxTasks))
	return nil
}

func (s *Service) resolveCaption(ctx context.Context, item *media.Item) (string, error) {
	text := strings.TrimSpace(item.Caption)
	if text == "" {
		generated, err := s.captions.Generate(ctx, item.FilePath)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(generated)
	}
	if extra := strings.TrimSpace(s.cfg.ExtraCaption); extra != "" {
		if text == "" {
			text = extra
		} else {
			text = text + "\n\n" + extra
		}
	}
	return text, nil
}

func (s *Service) failItem(item *media.Item, cause error) {
	if err := s.media.MarkError(item); err != nil {
		s.log.Warn("failed to mark media item errored", logx.String("file", item.FilePath), logx.Err(err))
	}
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
	s.notify.PostFailure(item.FilePath, cause)
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
