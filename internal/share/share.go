// Package share hands a rendered meme to somewhere outside the program.
package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/memeshot/internal/storage"
)

// ErrCancelled is returned when the user dismissed the share.
var ErrCancelled = errors.New("share cancelled")

// Payload is what gets shared.
type Payload struct {
	Title       string
	Text        string
	DialogTitle string
	Location    storage.Location
	Data        []byte
}

// Target receives a payload.
type Target interface {
	Share(ctx context.Context, p Payload) error
}

// Func adapts a function to Target.
type Func func(ctx context.Context, p Payload) error

// Share implements Target.
func (f Func) Share(ctx context.Context, p Payload) error { return f(ctx, p) }

// Multi shares to every target in order. All targets are attempted; the
// first failure is returned. The share counts as cancelled only when every
// target cancelled.
type Multi []Target

// Share implements Target.
func (m Multi) Share(ctx context.Context, p Payload) error {
	if len(m) == 0 {
		return fmt.Errorf("no share targets configured")
	}
	var first error
	cancelled := 0
	for _, t := range m {
		err := t.Share(ctx, p)
		switch {
		case err == nil:
		case errors.Is(err, ErrCancelled):
			cancelled++
		case first == nil:
			first = err
		}
	}
	if first != nil {
		return first
	}
	if cancelled == len(m) {
		return ErrCancelled
	}
	return nil
}
