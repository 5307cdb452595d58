package core

import (
	"log/slog"
	"sync"
	"time"
)

// Severity classifies a user notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one fire-and-forget message surfaced to the user. The
// core signals what happened; how it is displayed is the frontend's
// business.
type Notification struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Notifier receives fire-and-forget notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier forwards notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	switch n.Severity {
	case SeverityError:
		slog.Error("notification", "message", n.Message)
	case SeverityWarning:
		slog.Warn("notification", "message", n.Message)
	default:
		slog.Info("notification", "severity", n.Severity, "message", n.Message)
	}
}

// RingNotifier keeps the most recent notifications in memory so the
// dashboard can poll and display them. It also forwards to a wrapped
// notifier (typically LogNotifier).
type RingNotifier struct {
	mu      sync.Mutex
	entries []Notification
	limit   int
	next    Notifier
}

// NewRingNotifier creates a RingNotifier retaining at most limit entries.
func NewRingNotifier(limit int, next Notifier) *RingNotifier {
	if limit <= 0 {
		limit = 50
	}
	return &RingNotifier{limit: limit, next: next}
}

func (r *RingNotifier) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}

	r.mu.Lock()
	r.entries = append(r.entries, n)
	if len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
	r.mu.Unlock()

	if r.next != nil {
		r.next.Notify(n)
	}
}

// Recent returns notifications newer than since, oldest first.
func (r *RingNotifier) Recent(since time.Time) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Notification
	for _, n := range r.entries {
		if n.At.After(since) {
			out = append(out, n)
		}
	}
	return out
}
