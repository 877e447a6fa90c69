//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package imagesource

import (
	"fmt"
	"image"
)

func captureRootWindow() (image.Image, error) {
	return nil, fmt.Errorf("screen grab is not supported on this platform")
}
