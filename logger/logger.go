// Package logger defines the structured logging surface shared by the
// dispatcher, the chain drivers and the license gate.
package logger

// Logger accepts a message and a flat set of structured fields.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}

// Or returns l, or a NoopLogger when l is nil.
func Or(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}
