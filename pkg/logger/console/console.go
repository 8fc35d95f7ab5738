// Package console implements a logger backend that writes human-readable
// output to stderr using charmbracelet/log.
package console

import (
	"os"

	"github.com/charmbracelet/log"
)

// ConsoleLogger writes formatted log lines to stderr.
type ConsoleLogger struct {
	logger *log.Logger
}

// ConsoleLoggerParams configures a ConsoleLogger.
type ConsoleLoggerParams struct {
	Debug bool
}

// NewConsoleLogger creates a console backend. When Debug is set the level
// drops to debug, otherwise info.
func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	level := log.InfoLevel
	if params.Debug {
		level = log.DebugLevel
	}

	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})

	return &ConsoleLogger{logger: l}
}

func (c *ConsoleLogger) Debug(msg string, keyvals ...any) {
	c.logger.Debug(msg, keyvals...)
}

func (c *ConsoleLogger) Info(msg string, keyvals ...any) {
	c.logger.Info(msg, keyvals...)
}

func (c *ConsoleLogger) Warn(msg string, keyvals ...any) {
	c.logger.Warn(msg, keyvals...)
}

func (c *ConsoleLogger) Error(msg string, keyvals ...any) {
	c.logger.Error(msg, keyvals...)
}

func (c *ConsoleLogger) Fatal(msg string, keyvals ...any) {
	c.logger.Fatal(msg, keyvals...)
}
