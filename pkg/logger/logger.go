// Package logger provides a small multi-backend logging facade. The
// pipeline logs through the package-level functions; backends are
// registered once at startup via Init.
package logger

// LoggerInstance is a single logging backend. Implementations receive the
// message plus alternating key/value pairs.
type LoggerInstance interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	Fatal(msg string, keyvals ...any)
}

var instances []LoggerInstance

// Init registers the logging backends. Calling Init again replaces the
// previous set.
func Init(loggers ...LoggerInstance) {
	instances = loggers
}

// Debug logs a debug message to all registered backends.
func Debug(msg string, keyvals ...any) {
	for _, l := range instances {
		l.Debug(msg, keyvals...)
	}
}

// Info logs an informational message to all registered backends.
func Info(msg string, keyvals ...any) {
	for _, l := range instances {
		l.Info(msg, keyvals...)
	}
}

// Warn logs a warning message to all registered backends.
func Warn(msg string, keyvals ...any) {
	for _, l := range instances {
		l.Warn(msg, keyvals...)
	}
}

// Error logs an error message to all registered backends.
func Error(msg string, keyvals ...any) {
	for _, l := range instances {
		l.Error(msg, keyvals...)
	}
}

// Fatal logs a fatal message to all registered backends. Backends are
// expected to terminate the process.
func Fatal(msg string, keyvals ...any) {
	for _, l := range instances {
		l.Fatal(msg, keyvals...)
	}
}
