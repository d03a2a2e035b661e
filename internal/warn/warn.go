// Package warn implements the single piece of process-wide state the tool
// carries: a lock-free warning counter, paired with a structured log line
// each time it is incremented. Recoverable conditions (a truncated message,
// an encoding approximation, a slot overflow) call Warnf instead of failing
// the file outright; a fatal wire-format violation returns an *errs.Error
// instead and never touches this package.
package warn

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var count atomic.Uint64

var logger = logrus.StandardLogger()

// SetLogger overrides the logger used for warning messages. Passing nil
// restores the standard logger.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logger = l
}

// Count returns the number of warnings emitted so far in this process.
func Count() uint64 { return count.Load() }

// Reset zeroes the counter. Intended for tests.
func Reset() { count.Store(0) }

// Warnf increments the warning counter and logs a structured warning line.
// fields, if non-nil, are attached as logrus fields (e.g. "file_position").
func Warnf(fields logrus.Fields, format string, args ...any) {
	count.Add(1)
	entry := logger.WithFields(fields)
	entry.Warnf(format, args...)
}
