package share

import (
	"context"
	"fmt"

	"github.com/example/memeshot/internal/clipboard"
)

var writeClipboard = clipboard.WriteImagePNG

// Clipboard places the PNG on the system clipboard.
type Clipboard struct{}

// Share implements Target.
func (Clipboard) Share(ctx context.Context, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeClipboard(p.Data); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
