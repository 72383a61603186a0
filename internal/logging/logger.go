// Package logging provides the verbose progress logger of the benchmark run.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger writes progress messages to stderr. Messages are dropped unless the
// logger is enabled; warnings are always written.
type Logger struct {
	enabled bool
	entry   *logrus.Entry
}

// NewLogger creates a new logger instance.
func NewLogger(enabled bool) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableQuote:     true,
	})
	base.SetLevel(logrus.WarnLevel)
	if enabled {
		base.SetLevel(logrus.DebugLevel)
	}
	return &Logger{
		enabled: enabled,
		entry:   logrus.NewEntry(base),
	}
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	l := NewLogger(false)
	l.SetOutput(io.Discard)
	return l
}

// SetOutput sets the output writer for the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

// WithField returns a logger that attaches key to every message.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{enabled: l.enabled, entry: l.entry.WithField(key, value)}
}

// Log prints a formatted message if verbose mode is enabled.
func (l *Logger) Log(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func (l *Logger) Section(name string) {
	l.entry.Debugf("=== %s ===", name)
}

// Warn prints a message regardless of verbose mode.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Enabled returns whether the logger is enabled.
func (l *Logger) Enabled() bool {
	return l.enabled
}
