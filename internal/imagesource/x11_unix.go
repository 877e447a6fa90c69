//go:build linux || freebsd || openbsd || netbsd || dragonfly

package imagesource

import (
	"fmt"
	"image"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

func captureRootWindow() (image.Image, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect X server: %w", err)
	}
	defer conn.Close()

	setup := xproto.Setup(conn)
	if setup == nil {
		return nil, fmt.Errorf("xproto setup unavailable")
	}
	screen := setup.DefaultScreen(conn)
	if screen == nil {
		return nil, fmt.Errorf("xproto screen unavailable")
	}
	w, h := screen.WidthInPixels, screen.HeightInPixels
	reply, err := xproto.GetImage(conn, xproto.ImageFormatZPixmap, xproto.Drawable(screen.Root), 0, 0, w, h, ^uint32(0)).Reply()
	if err != nil {
		return nil, fmt.Errorf("root window pixels: %w", err)
	}
	return xImageToRGBA(setup, reply, int(w), int(h))
}

// xImageToRGBA converts a ZPixmap reply in BGR(A) byte order. The alpha
// byte of depth-24 visuals is padding, so every pixel is made opaque.
func xImageToRGBA(setup *xproto.SetupInfo, reply *xproto.GetImageReply, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("screen has empty geometry")
	}
	if reply == nil || len(reply.Data) == 0 {
		return nil, fmt.Errorf("screen pixels: empty image data")
	}
	bitsPerPixel := 0
	for _, format := range setup.PixmapFormats {
		if format.Depth == reply.Depth {
			bitsPerPixel = int(format.BitsPerPixel)
			break
		}
	}
	bytesPerPixel := bitsPerPixel / 8
	if bytesPerPixel < 3 {
		return nil, fmt.Errorf("unsupported screen depth %d (%d bpp)", reply.Depth, bitsPerPixel)
	}
	stride := len(reply.Data) / height
	if stride*height != len(reply.Data) || stride < width*bytesPerPixel {
		return nil, fmt.Errorf("screen pixels: unexpected stride")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := reply.Data[y*stride : (y+1)*stride]
		for x := 0; x < width; x++ {
			off := x * bytesPerPixel
			pix := img.PixOffset(x, y)
			img.Pix[pix+0] = row[off+2]
			img.Pix[pix+1] = row[off+1]
			img.Pix[pix+2] = row[off]
			img.Pix[pix+3] = 0xFF
		}
	}
	return img, nil
}
