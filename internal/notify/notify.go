// Package notify raises desktop notifications for finished saves and shares
// and for failures the user should know about.
package notify

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/memeshot/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventSave emits a notification when a meme is written to documents.
	EventSave Event = "save"
	// EventShare emits a notification when a meme was handed to a share target.
	EventShare Event = "share"
	// EventFailure emits a dismissible notice when a save or share failed.
	EventFailure Event = "failure"
)

// Events lists every event in a stable order.
func Events() []Event { return []Event{EventSave, EventShare, EventFailure} }

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title  string
	Events map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: "memeshot",
		Events: map[Event]EventPreference{
			EventSave:    {Template: "Saved %s"},
			EventShare:   {Template: "Shared %s"},
			EventFailure: {Template: "Something went wrong: %s"},
		},
	}
}

// LoadPreferences reads configuration from environment variables.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(os.Getenv("MEMESHOT_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	apply := func(key string, event Event) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			eventPrefs := prefs.Events[event]
			eventPrefs.Template = v
			prefs.Events[event] = eventPrefs
		}
	}
	apply("MEMESHOT_NOTIFY_SAVE_TEXT", EventSave)
	apply("MEMESHOT_NOTIFY_SHARE_TEXT", EventShare)
	apply("MEMESHOT_NOTIFY_FAILURE_TEXT", EventFailure)
	return prefs
}

var send = platform.Notify

// Notifier sends OS-level notifications based on the configured preferences.
// A nil Notifier is silent.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
}

// New creates a new Notifier using the provided preferences.
func New(prefs Preferences) *Notifier {
	cloned := Preferences{Title: prefs.Title, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	return &Notifier{prefs: cloned, enabled: make(map[Event]bool)}
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	if n.enabled == nil {
		n.enabled = make(map[Event]bool)
	}
	n.enabled[event] = enabled
}

// Saved reports a file written to the documents area.
func (n *Notifier) Saved(path string) {
	if !n.enabledFor(EventSave) {
		return
	}
	detail := strings.TrimSpace(path)
	opts := platform.Options{}
	if abs, err := filepath.Abs(path); err == nil {
		detail = abs
		if _, statErr := os.Stat(abs); statErr == nil {
			opts.IconPath = abs
		}
	}
	n.dispatch(EventSave, detail, opts)
}

// Shared reports a finished share.
func (n *Notifier) Shared(detail string) {
	if strings.TrimSpace(detail) == "" {
		detail = "meme"
	}
	n.dispatch(EventShare, detail, platform.Options{})
}

// Failed reports an operation that did not complete.
func (n *Notifier) Failed(op string, err error) {
	if err == nil {
		return
	}
	n.dispatch(EventFailure, fmt.Sprintf("%s: %v", op, err), platform.Options{Urgent: true})
}

func (n *Notifier) enabledFor(event Event) bool {
	if n == nil {
		return false
	}
	if n.enabled == nil {
		return false
	}
	return n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	if !n.enabledFor(event) {
		return
	}
	template := strings.TrimSpace(n.template(event))
	if template == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(template, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	if err := send(n.prefs.Title, body, opts); err != nil {
		log.Printf("notification %s: %v", event, err)
	}
}

func (n *Notifier) template(event Event) string {
	if n == nil {
		return ""
	}
	if pref, ok := n.prefs.Events[event]; ok {
		return pref.Template
	}
	return ""
}
