// Package platform shows desktop notifications with the host's native
// notification service.
package platform

import "time"

// defaultTimeout applies when Options.Timeout is zero.
const defaultTimeout = 5 * time.Second

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// IconPath, when non-empty, points to an image shown with the notification
	// if the notification center supports it.
	IconPath string
	// Urgent marks notices about failed operations.
	Urgent bool
	// Timeout is how long the notice stays up. Zero uses the default.
	Timeout time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return defaultTimeout
	}
	return o.Timeout
}
