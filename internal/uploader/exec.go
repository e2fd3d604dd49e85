package uploader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	logx "postbot/pkg/logx"
)

// ExecUploader shells out to an external upload command, passing the media
// path and caption as flags. The command inherits the environment plus any
// configured credential variables; its combined output is captured so a
// failure can be diagnosed from the log.
type ExecUploader struct {
	// Command is the program plus fixed leading arguments.
	Command []string
	// Headless appends --headless for browser-automation commands.
	Headless bool
	// Env holds extra KEY=VALUE pairs (e.g. Instagram credentials).
	Env []string
	// Timeout bounds a single upload attempt; 0 means no limit.
	Timeout time.Duration

	Log logx.Logger
}

func (u *ExecUploader) Upload(ctx context.Context, mediaPath, caption string) error {
	if len(u.Command) == 0 {
		return &Error{MediaPath: mediaPath, Cause: errors.New("no upload command configured")}
	}

	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	args := append([]string(nil), u.Command[1:]...)
	args = append(args, "-f", mediaPath, "-c", caption)
	if u.Headless {
		args = append(args, "--headless")
	}

	cmd := exec.CommandContext(ctx, u.Command[0], args...)
	cmd.Env = append(os.Environ(), u.Env...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	took := time.Since(start)

	log := u.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	if err != nil {
		log.Error("upload command failed",
			logx.String("file", mediaPath),
			logx.Duration("took", took),
			logx.String("output", tail(out.String(), 2000)),
			logx.Err(err))
		return &Error{MediaPath: mediaPath, Cause: err}
	}
	log.Info("upload command succeeded", logx.String("file", mediaPath), logx.Duration("took", took))
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
