package log

// Logger is the interface components implement to receive protocol events.
// Pass nil or NoopLogger to disable capture.
type Logger interface {
	// Log records a protocol event. Implementations must be thread-safe
	// and should return quickly; blocking stalls the notification path.
	Log(event Event)
}

// NoopLogger discards all events. Use when logging is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
