package types

// Severity classifies a notification.
type Severity string

// Notification severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

// Notifier surfaces user-facing text. The engine calls it; presentation is
// up to the host.
type Notifier interface {
	Notify(severity Severity, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(severity Severity, message string)

// Notify calls f(severity, message).
func (f NotifierFunc) Notify(severity Severity, message string) {
	f(severity, message)
}
