// Package notify provides Notifier implementations: writers for terminal
// hosts, a zap bridge, fan-out, and a recorder for tests.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/storefront/pkg/types"
)

// Writer prints each notification as "[severity] message" to w.
func Writer(w io.Writer) types.Notifier {
	return types.NotifierFunc(func(severity types.Severity, message string) {
		fmt.Fprintf(w, "[%s] %s\n", severity, message)
	})
}

// Log mirrors notifications into logger: errors at error level, warnings at
// warn level and everything else at info.
func Log(logger *zap.Logger) types.Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("notify")
	return types.NotifierFunc(func(severity types.Severity, message string) {
		fields := []zap.Field{zap.String("severity", string(severity))}
		switch severity {
		case types.SeverityError:
			logger.Error(message, fields...)
		case types.SeverityWarning:
			logger.Warn(message, fields...)
		default:
			logger.Info(message, fields...)
		}
	})
}

// Multi fans a notification out to every non-nil notifier in order.
func Multi(notifiers ...types.Notifier) types.Notifier {
	return types.NotifierFunc(func(severity types.Severity, message string) {
		for _, n := range notifiers {
			if n != nil {
				n.Notify(severity, message)
			}
		}
	})
}

// Discard drops every notification.
var Discard types.Notifier = types.NotifierFunc(func(types.Severity, string) {})

// Entry is one recorded notification.
type Entry struct {
	Severity types.Severity
	Message  string
}

// Recorder keeps every notification it receives. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Notify records the notification.
func (r *Recorder) Notify(severity types.Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Severity: severity, Message: message})
}

// Entries returns a copy of the recorded notifications.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns the number of recorded notifications with the severity.
func (r *Recorder) Count(severity types.Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Severity == severity {
			n++
		}
	}
	return n
}

// Contains reports whether any recorded message contains substr.
func (r *Recorder) Contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Reset drops every recorded notification.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
