package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"postbot/internal/schedule"
)

// Config is the full daemon configuration.
//
// All durations are Go duration strings (e.g. "30s", "1m", "2h").
type Config struct {
	// Schedule declares the daily posting windows, in priority order.
	Schedule []schedule.RawEntry `json:"schedule"`

	// MediaList is the path of the media-list CSV.
	MediaList string `json:"media_list"`

	// ExtraCaption is appended to every post.
	ExtraCaption string `json:"extra_caption,omitempty"`

	PollInterval    string `json:"poll_interval,omitempty"`     // default "60s"
	MinPostInterval string `json:"min_post_interval,omitempty"` // default "0s" (disabled)

	// RetentionDays is a pointer so we can distinguish "omitted" (default
	// 30) from an explicit 0 (pruning disabled).
	RetentionDays *int `json:"retention_days,omitempty"`

	// DataDir holds the lock token and the window-task store.
	DataDir string `json:"data_dir,omitempty"` // default "./data"

	// Headless controls the browser-automation upload command.
	Headless bool `json:"headless,omitempty"`

	Logging  LoggingConfig  `json:"logging"`
	Store    StoreConfig    `json:"store,omitempty"`
	Uploader CommandConfig  `json:"uploader"`
	Caption  *CommandConfig `json:"caption,omitempty"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	API      *APIConfig      `json:"api,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console *bool      `json:"console,omitempty"` // default true
	File    FileConfig `json:"file,omitzero"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// StoreConfig controls the window-task store backend.
//
// Example:
//
//	"store": { "driver": "sqlite", "path": "./data/postbot.db" }
type StoreConfig struct {
	Driver      string `json:"driver,omitempty"` // "file" (default) or "sqlite"
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// CommandConfig describes an external command collaborator.
type CommandConfig struct {
	Command []string `json:"command"`
	Timeout string   `json:"timeout,omitempty"`
}

type NotifierConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:8686"
}

// ---- Resolved accessors ----

func (c *Config) PollIntervalDuration() time.Duration {
	return durationOr(c.PollInterval, time.Minute)
}

func (c *Config) MinPostIntervalDuration() time.Duration {
	return durationOr(c.MinPostInterval, 0)
}

func (c *Config) RetentionDaysOrDefault() int {
	if c.RetentionDays == nil {
		return 30
	}
	return *c.RetentionDays
}

func (c *Config) DataDirOrDefault() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return "./data"
	}
	return c.DataDir
}

// LockPath is the well-known lock token location.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDirOrDefault(), "scheduler.lock")
}

// StorePath resolves the store backing path, defaulting into DataDir.
func (c *Config) StorePath() string {
	if strings.TrimSpace(c.Store.Path) != "" {
		return c.Store.Path
	}
	if strings.EqualFold(c.Store.Driver, "sqlite") {
		return filepath.Join(c.DataDirOrDefault(), "postbot.db")
	}
	return filepath.Join(c.DataDirOrDefault(), "window_tasks")
}

func (c *Config) StoreBusyTimeout() time.Duration {
	return durationOr(c.Store.BusyTimeout, 0)
}

func (c *Config) ConsoleLogging() bool {
	return c.Logging.Console == nil || *c.Logging.Console
}

func (c *CommandConfig) TimeoutDuration() time.Duration {
	if c == nil {
		return 0
	}
	return durationOr(c.Timeout, 0)
}

// Validate checks everything that does not need other subsystems.
// Schedule entries get their deep validation in schedule.Parse.
func (c *Config) Validate() error {
	if len(c.Schedule) == 0 {
		return errors.New("config: schedule must declare at least one entry")
	}
	if strings.TrimSpace(c.MediaList) == "" {
		return errors.New("config: media_list is required")
	}
	if len(c.Uploader.Command) == 0 {
		return errors.New("config: uploader.command is required")
	}
	for _, f := range []struct{ name, val string }{
		{"poll_interval", c.PollInterval},
		{"min_post_interval", c.MinPostInterval},
		{"store.busy_timeout", c.Store.BusyTimeout},
		{"uploader.timeout", c.Uploader.Timeout},
	} {
		if err := checkDuration(f.val); err != nil {
			return fmt.Errorf("config: %s: %w", f.name, err)
		}
	}
	if c.Caption != nil {
		if err := checkDuration(c.Caption.Timeout); err != nil {
			return fmt.Errorf("config: caption.timeout: %w", err)
		}
	}
	if c.RetentionDays != nil && *c.RetentionDays < 0 {
		return errors.New("config: retention_days must be >= 0")
	}
	return nil
}

func durationOr(s string, def time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func checkDuration(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return errors.New("must not be negative")
	}
	return nil
}
