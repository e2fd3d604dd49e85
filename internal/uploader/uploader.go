// Package uploader defines the upload action boundary.
//
// The scheduler core only needs "post this file with this caption"; the
// browser automation that actually performs the post lives behind the
// Uploader interface. Failures are per-item: the scheduler marks the item
// errored and keeps running.
package uploader

import (
	"context"
	"fmt"
)

// Uploader posts one media file with a caption.
type Uploader interface {
	Upload(ctx context.Context, mediaPath, caption string) error
}

// Func adapts a plain function to the Uploader interface.
type Func func(ctx context.Context, mediaPath, caption string) error

func (f Func) Upload(ctx context.Context, mediaPath, caption string) error {
	return f(ctx, mediaPath, caption)
}

// Error wraps a per-item upload failure.
type Error struct {
	MediaPath string
	Cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upload %s: %v", e.MediaPath, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }
