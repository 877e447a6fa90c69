//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && cgo

package clipboard

import (
	"errors"
	"os"
	"sync"

	"golang.design/x/clipboard"
)

var (
	initOnce     sync.Once
	initErr      error
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
	errNoImage   = errors.New("clipboard does not contain image data")
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		initErr = clipboard.Init()
	})
	return initErr
}

// WriteImagePNG publishes PNG encoded data to the clipboard.
func WriteImagePNG(data []byte) error {
	if err := ensureInit(); err != nil {
		return err
	}
	if len(data) == 0 {
		return errNoImage
	}
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}

// ReadImagePNG returns the PNG data currently held by the clipboard.
func ReadImagePNG() ([]byte, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	data := clipboard.Read(clipboard.FmtImage)
	if len(data) == 0 {
		return nil, errNoImage
	}
	return data, nil
}
