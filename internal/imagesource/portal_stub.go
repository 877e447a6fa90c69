//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package imagesource

import (
	"context"
	"fmt"
)

// Portal picks a file with the desktop portal. It is only available on
// unix desktops.
type Portal struct {
	Title string
}

// Pick implements Source.
func (Portal) Pick(context.Context) (Ref, error) {
	return "", fmt.Errorf("portal file chooser is not supported on this platform")
}
