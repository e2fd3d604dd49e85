package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"postbot/internal/caption"
	"postbot/internal/config"
	"postbot/internal/media"
	"postbot/internal/uploader"
	logx "postbot/pkg/logx"
)

var mediaExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".mp4":  true,
	".mov":  true,
}

// runUpload posts a single file immediately. The window schedule, the task
// store and the lock are all bypassed; nothing is recorded.
func runUpload(cliCtx *cli.Context) error {
	file := cliCtx.String("file")
	if file == "" {
		return cli.NewExitError("upload: --file is required", 1)
	}
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	log := logx.NewConsole(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text := cliCtx.String("caption")
	if text == "" {
		gen := captionGenerator(cfg)
		if gen == nil {
			return cli.NewExitError("upload: no caption given and no caption command configured", 1)
		}
		text, err = gen.Generate(ctx, file)
		if err != nil {
			return fmt.Errorf("generate caption: %w", err)
		}
	}
	if cfg.ExtraCaption != "" {
		text = text + "\n\n" + cfg.ExtraCaption
	}

	up := &uploader.ExecUploader{
		Command:  cfg.Uploader.Command,
		Headless: cfg.Headless,
		Env:      config.CredentialEnv(),
		Timeout:  cfg.Uploader.TimeoutDuration(),
		Log:      log,
	}
	if err := up.Upload(ctx, file, text); err != nil {
		return err
	}
	log.Info("uploaded", logx.String("file", file))
	return nil
}

// runCaption generates captions for a file or every media file in a
// directory and writes the result as a media-list CSV.
func runCaption(cliCtx *cli.Context) error {
	target := cliCtx.Args().First()
	if target == "" {
		return cli.NewExitError("caption: a file or directory argument is required", 1)
	}
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	gen := captionGenerator(cfg)
	if gen == nil {
		return cli.NewExitError("caption: no caption command configured", 1)
	}
	out := cliCtx.String("out")
	if out == "" {
		out = cfg.MediaList
	}
	log := logx.NewConsole(cfg.Logging.Level)

	files, err := collectMedia(target)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("caption: no media files found under %s", target)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	items := make([]media.Item, 0, len(files))
	for _, f := range files {
		text, err := gen.Generate(ctx, f)
		if err != nil {
			return fmt.Errorf("generate caption for %s: %w", f, err)
		}
		log.Info("captioned", logx.String("file", f))
		items = append(items, media.Item{FilePath: f, Caption: text})
	}

	if err := media.Write(out, items); err != nil {
		return err
	}
	log.Info("media list written", logx.String("path", out), logx.Int("items", len(items)))
	return nil
}

func captionGenerator(cfg *config.Config) caption.Generator {
	if cfg.Caption == nil || len(cfg.Caption.Command) == 0 {
		return nil
	}
	return &caption.ExecGenerator{
		Command: cfg.Caption.Command,
		Timeout: cfg.Caption.TimeoutDuration(),
	}
}

// collectMedia returns the target itself when it is a file, or every media
// file directly inside it when it is a directory, sorted by name.
func collectMedia(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if mediaExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(target, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
