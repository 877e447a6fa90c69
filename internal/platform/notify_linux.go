//go:build linux

package platform

import (
	"log"

	"github.com/godbus/dbus/v5"
)

// urgency levels from the desktop notification spec
const (
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// Notify sends a desktop notification over the session bus.
func Notify(title, body string, opts Options) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("dbus close: %v", cerr)
		}
	}()

	obj := conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.Call("org.freedesktop.Notifications.Notify", 0,
		"memeshot", uint32(0), opts.IconPath, title, body, []string{}, hints(opts), int32(opts.timeout().Milliseconds()))
	return call.Err
}

func hints(opts Options) map[string]dbus.Variant {
	urgency := urgencyNormal
	if opts.Urgent {
		urgency = urgencyCritical
	}
	return map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(urgency),
		"desktop-entry": dbus.MakeVariant("memeshot"),
	}
}
