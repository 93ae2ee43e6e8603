// Package notify is the user-visible notification channel. Notifications are
// fire-and-forget: no return value and no retry.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/qshape/qshape/internal/ui"
)

// Severity ranks a notification.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notification is a (title, message, severity) triple.
type Notification struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// Terminal writes one symbol-prefixed line per notification.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal returns a Terminal writing to w (usually os.Stderr).
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) Notify(n Notification) {
	text := n.Title
	if n.Message != "" {
		text = fmt.Sprintf("%s: %s", n.Title, n.Message)
	}

	var line string
	switch n.Severity {
	case Success:
		line = ui.Success(text)
	case Warning:
		line = ui.Warning(text)
	case Error:
		line = ui.Error(text)
	default:
		line = ui.Info(text)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, line)
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return Notification{}, false
	}
	return r.got[len(r.got)-1], true
}
