// Package notify defines the user-facing notification sink. The API client
// posts transient messages to it; it never reads anything back.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Severity classifies a notification
type Severity string

const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
)

// Notifier displays a message to the user
type Notifier interface {
	Notify(severity Severity, message string)
}

// Func adapts a plain function to Notifier
type Func func(severity Severity, message string)

// Notify calls f
func (f Func) Notify(severity Severity, message string) {
	f(severity, message)
}

// Discard drops every notification
var Discard Notifier = Func(func(Severity, string) {})

// Console prints notifications to a terminal stream
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a console notifier writing to out
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Notify writes one line prefixed with a severity marker
func (c *Console) Notify(severity Severity, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s %s\n", marker(severity), message)
}

func marker(severity Severity) string {
	switch severity {
	case SeverityError:
		return "✗"
	case SeveritySuccess:
		return "✓"
	default:
		return "ℹ"
	}
}

// Notification is one recorded message
type Notification struct {
	Severity Severity
	Message  string
}

// Recorder keeps every notification in order. Useful in tests.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify records the message
func (r *Recorder) Notify(severity Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Severity: severity, Message: message})
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Messages returns only the message texts
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.items))
	for i, n := range r.items {
		out[i] = n.Message
	}
	return out
}

// Reset forgets everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
