// Package imagesource picks base images and decodes them into memory.
//
// A Source produces a Ref, a URI-like pointer to image data. Decode resolves
// a Ref by its scheme:
//
//	file:///path/to/image.png
//	clipboard:
//	x11:root
package imagesource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/example/memeshot/internal/clipboard"
)

var (
	// ErrCancelled is returned by a Source when the user dismissed the picker.
	ErrCancelled = errors.New("image selection cancelled")
	// ErrTooLarge rejects images whose pixel count exceeds the decode limit.
	ErrTooLarge = errors.New("image too large")
)

// DefaultMaxPixels bounds decoded images. Every render holds a few RGBA
// copies, so this caps memory at a few hundred megabytes per session.
const DefaultMaxPixels = 40_000_000

// Ref identifies image data that Decode can load.
type Ref string

const (
	// ClipboardRef reads a PNG from the system clipboard.
	ClipboardRef Ref = "clipboard:"
	// RootWindowRef grabs the X11 root window.
	RootWindowRef Ref = "x11:root"
)

// FileRef returns the file:// reference for path.
func FileRef(path string) Ref {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return Ref(u.String())
}

// Scheme returns the part before the first colon.
func (r Ref) Scheme() string {
	s, _, ok := strings.Cut(string(r), ":")
	if !ok {
		return ""
	}
	return strings.ToLower(s)
}

// Path returns the local path of a file reference.
func (r Ref) Path() (string, error) {
	u, err := url.Parse(string(r))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", r, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%q is not a file reference", r)
	}
	return filepath.FromSlash(u.Path), nil
}

// Source picks an image.
type Source interface {
	Pick(ctx context.Context) (Ref, error)
}

// File is a Source for a fixed path.
type File struct {
	Path string
}

// Pick implements Source.
func (f File) Pick(context.Context) (Ref, error) {
	if strings.TrimSpace(f.Path) == "" {
		return "", fmt.Errorf("no image path given")
	}
	return FileRef(f.Path), nil
}

// Clipboard is a Source for the image currently on the clipboard.
type Clipboard struct{}

// Pick implements Source.
func (Clipboard) Pick(context.Context) (Ref, error) { return ClipboardRef, nil }

// X11 is a Source for a grab of the whole X11 screen.
type X11 struct{}

// Pick implements Source.
func (X11) Pick(context.Context) (Ref, error) { return RootWindowRef, nil }

// ByName returns the named source: portal, clipboard or x11.
func ByName(name string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "portal", "picker":
		return Portal{}, nil
	case "clipboard":
		return Clipboard{}, nil
	case "x11", "screen":
		return X11{}, nil
	default:
		return nil, fmt.Errorf("unknown image source %q", name)
	}
}

// Loader functions are variables so tests can replace platform access.
var (
	readClipboard  = clipboard.ReadImagePNG
	grabRootWindow = captureRootWindow
)

// Decode loads the image behind ref.
func Decode(ctx context.Context, ref Ref) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch ref.Scheme() {
	case "file":
		path, err := ref.Path()
		if err != nil {
			return nil, err
		}
		return DecodeFile(path)
	case "clipboard":
		data, err := readClipboard()
		if err != nil {
			return nil, fmt.Errorf("read clipboard: %w", err)
		}
		return DecodeBytes(data)
	case "x11":
		if ref != RootWindowRef {
			return nil, fmt.Errorf("unsupported x11 reference %q", ref)
		}
		img, err := grabRootWindow()
		if err != nil {
			return nil, fmt.Errorf("grab screen: %w", err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported image reference %q", ref)
	}
}

// DecodeFile decodes an image file in any registered format.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "close %s: %v\n", path, cerr)
		}
	}()
	img, err := DecodeReader(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// DecodeBytes decodes in-memory image data.
func DecodeBytes(data []byte) (image.Image, error) {
	return DecodeReader(bytes.NewReader(data))
}

// DecodeReader decodes png, jpeg, gif, bmp or webp data up to
// DefaultMaxPixels.
func DecodeReader(r io.Reader) (image.Image, error) {
	return DecodeReaderLimit(r, DefaultMaxPixels)
}

// DecodeReaderLimit reads the image header first and refuses images with
// more than maxPixels pixels before any pixel data is allocated. A
// non-positive maxPixels disables the check.
func DecodeReaderLimit(r io.Reader, maxPixels int64) (image.Image, error) {
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, err
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	img, _, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, err
	}
	return img, nil
}
