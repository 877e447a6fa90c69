//go:build linux || freebsd || openbsd || netbsd || dragonfly

package imagesource

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
)

// Portal picks a file with the xdg-desktop-portal FileChooser dialog.
type Portal struct {
	// Title is the dialog title.
	Title string
}

var portalHandleToken = newPortalHandleToken

// portal response codes
const (
	portalResponseOK        = 0
	portalResponseCancelled = 1
)

type portalFilter struct {
	Name     string
	Patterns []portalPattern
}

type portalPattern struct {
	Kind    uint32
	Pattern string
}

// Pick implements Source.
func (p Portal) Pick(ctx context.Context) (Ref, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return "", fmt.Errorf("dbus connect: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "dbus close: %v\n", cerr)
		}
	}()

	title := p.Title
	if title == "" {
		title = "Choose an image"
	}
	obj := conn.Object("org.freedesktop.portal.Desktop", "/org/freedesktop/portal/desktop")
	var handle dbus.ObjectPath
	call := obj.CallWithContext(ctx, "org.freedesktop.portal.FileChooser.OpenFile", 0, "", title, portalOpenOptions())
	if call.Err != nil {
		return "", fmt.Errorf("portal open file call: %w", call.Err)
	}
	if err := call.Store(&handle); err != nil {
		return "", fmt.Errorf("portal open file response: %w", err)
	}

	sigc := make(chan *dbus.Signal, 1)
	conn.Signal(sigc)
	defer conn.RemoveSignal(sigc)
	rule := fmt.Sprintf("type='signal',interface='org.freedesktop.portal.Request',member='Response',path='%s'", handle)
	if err := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
		return "", fmt.Errorf("portal open file subscribe: %w", err)
	}
	defer conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, rule)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case sig, ok := <-sigc:
			if !ok {
				return "", fmt.Errorf("portal open file: connection closed")
			}
			if sig.Path != handle || sig.Name != "org.freedesktop.portal.Request.Response" {
				continue
			}
			return portalResult(sig.Body)
		}
	}
}

func portalResult(body []interface{}) (Ref, error) {
	if len(body) < 2 {
		return "", fmt.Errorf("portal open file: malformed response")
	}
	code, _ := body[0].(uint32)
	switch code {
	case portalResponseOK:
	case portalResponseCancelled:
		return "", ErrCancelled
	default:
		return "", fmt.Errorf("portal open file: request failed with code %d", code)
	}
	res, _ := body[1].(map[string]dbus.Variant)
	urisVar, ok := res["uris"]
	if !ok {
		return "", fmt.Errorf("portal open file: response missing uris")
	}
	uris, _ := urisVar.Value().([]string)
	if len(uris) == 0 {
		return "", ErrCancelled
	}
	return Ref(uris[0]), nil
}

func newPortalHandleToken() string {
	return fmt.Sprintf("memeshot-%d", time.Now().UnixNano())
}

func portalOpenOptions() map[string]dbus.Variant {
	images := portalFilter{Name: "Images", Patterns: []portalPattern{
		{Kind: 1, Pattern: "image/png"},
		{Kind: 1, Pattern: "image/jpeg"},
		{Kind: 1, Pattern: "image/gif"},
		{Kind: 1, Pattern: "image/bmp"},
		{Kind: 1, Pattern: "image/webp"},
	}}
	return map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(portalHandleToken()),
		"modal":        dbus.MakeVariant(true),
		"multiple":     dbus.MakeVariant(false),
		"filters":      dbus.MakeVariant([]portalFilter{images}),
	}
}
