// Package notifier sends optional Telegram notifications about posting
// activity. It is send-only: the bot never polls for updates.
//
// A nil *Notifier is valid and silently drops everything, so callers
// never need to guard their notification calls.
package notifier

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "postbot/pkg/logx"
)

type Config struct {
	Enabled bool
	Token   string
	ChatID  int64
}

type Notifier struct {
	bot  *tele.Bot
	chat tele.ChatID
	log  logx.Logger
}

// New builds a notifier, or nil when disabled or unconfigured.
func New(cfg Config, log logx.Logger) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("notifier enabled but token/chat_id missing")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	return &Notifier{bot: b, chat: tele.ChatID(cfg.ChatID), log: log}, nil
}

// PostSuccess reports a completed upload.
func (n *Notifier) PostSuccess(file, windowID string, completed, maxTasks int) {
	n.send(fmt.Sprintf("✅ posted %s (window %s, %d/%d)", file, windowID, completed, maxTasks))
}

// PostFailure reports a failed upload. The item stays in the list marked
// ERROR, so the operator may want to look at it.
func (n *Notifier) PostFailure(file string, err error) {
	n.send(fmt.Sprintf("❌ upload failed for %s: %v", file, err))
}

// Fatal reports a condition that stopped the scheduler.
func (n *Notifier) Fatal(err error) {
	n.send(fmt.Sprintf("🛑 scheduler stopped: %v", err))
}

func (n *Notifier) send(text string) {
	if n == nil || n.bot == nil {
		return
	}
	// Best effort: a notification failure must never affect scheduling.
	if _, err := n.bot.Send(n.chat, text); err != nil {
		n.log.Warn("notification send failed", logx.Err(err))
	}
}
