package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"postbot/internal/api"
	"postbot/internal/caption"
	"postbot/internal/config"
	"postbot/internal/lock"
	"postbot/internal/media"
	"postbot/internal/notifier"
	"postbot/internal/schedule"
	"postbot/internal/scheduler"
	"postbot/internal/store"
	"postbot/internal/uploader"
	logx "postbot/pkg/logx"
)

func runScheduler(cliCtx *cli.Context) error {
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()

	if err := os.MkdirAll(cfg.DataDirOrDefault(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	model, err := schedule.Parse(cfg.Schedule)
	if err != nil {
		return err
	}
	for _, e := range model.Entries() {
		if e.CrossesMidnight() {
			log.Warn("window extends past midnight and will be clamped at the day boundary",
				logx.String("entry", e.ID))
		}
	}

	st, err := store.Open(store.Config{
		Driver:      cfg.Store.Driver,
		Path:        cfg.StorePath(),
		BusyTimeout: cfg.StoreBusyTimeout(),
	})
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer st.Close()

	list, err := media.Load(cfg.MediaList, log)
	if err != nil {
		return fmt.Errorf("load media list: %w", err)
	}

	up := &uploader.ExecUploader{
		Command:  cfg.Uploader.Command,
		Headless: cfg.Headless,
		Env:      config.CredentialEnv(),
		Timeout:  cfg.Uploader.TimeoutDuration(),
		Log:      log,
	}

	var gen caption.Generator
	if cfg.Caption != nil && len(cfg.Caption.Command) > 0 {
		gen = &caption.ExecGenerator{
			Command: cfg.Caption.Command,
			Timeout: cfg.Caption.TimeoutDuration(),
		}
	}

	var events scheduler.Events
	if cfg.Notifier != nil {
		n, err := notifier.New(notifier.Config{
			Enabled: cfg.Notifier.Enabled,
			Token:   cfg.Notifier.Token,
			ChatID:  cfg.Notifier.ChatID,
		}, log)
		if err != nil {
			return err
		}
		if n != nil {
			events = n
		}
	}

	svc := scheduler.New(scheduler.Config{
		PollInterval:    cfg.PollIntervalDuration(),
		MinPostInterval: cfg.MinPostIntervalDuration(),
		ExtraCaption:    cfg.ExtraCaption,
		RetentionDays:   cfg.RetentionDaysOrDefault(),
	}, log, model, st, list, up, gen, lock.New(cfg.LockPath(), log), events)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.API != nil {
		api.New(api.Config{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr}, svc, log).Start(ctx)
	}

	if err := svc.Run(ctx); err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) {
			fmt.Fprintln(os.Stderr, held.Error())
			return cli.NewExitError("another scheduler instance appears to be running", 1)
		}
		return err
	}
	return nil
}
