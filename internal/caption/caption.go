// Package caption defines the caption-generation boundary used when a
// media item carries no explicit caption.
package caption

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Generator produces a caption for a media file.
type Generator interface {
	Generate(ctx context.Context, mediaPath string) (string, error)
}

// Static always returns the same caption. Used as the fallback when no
// generator command is configured.
type Static string

func (s Static) Generate(context.Context, string) (string, error) {
	return string(s), nil
}

// ExecGenerator shells out to an external captioner command: the media
// path is passed as the final argument and the caption is read from
// stdout (trimmed).
type ExecGenerator struct {
	Command []string
	Timeout time.Duration
}

func (g *ExecGenerator) Generate(ctx context.Context, mediaPath string) (string, error) {
	if len(g.Command) == 0 {
		return "", errors.New("no caption command configured")
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), g.Command[1:]...), mediaPath)
	cmd := exec.CommandContext(ctx, g.Command[0], args...)

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errOut.String())
		if msg != "" {
			return "", errors.New("caption command: " + msg)
		}
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}
