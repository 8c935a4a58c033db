// Package logging implements the verbosity-gated logger used throughout
// mongtap, in the shape of the mongo-tools common/log package: a mutex
// guarded writer plus a small integer verbosity scale rather than named
// levels.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Verbosity constants, lowest to highest.
const (
	Always = iota
	Info
	DebugLow
	DebugHigh
)

// TimeFormat is the timestamp format prefixed to every log line.
const TimeFormat = "2006-01-02T15:04:05.000-0700"

// Logger is a verbosity-gated, mutex-guarded writer.
type Logger struct {
	mu        sync.Mutex
	writer    io.Writer
	format    string
	verbosity int
}

// New returns a Logger writing to stderr at the given verbosity.
func New(verbosity int) *Logger {
	return &Logger{
		writer:    os.Stderr,
		format:    TimeFormat,
		verbosity: verbosity,
	}
}

// SetVerbosity changes the minimum verbosity required for a message to be
// emitted.
func (l *Logger) SetVerbosity(v int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbosity = v
}

// SetWriter redirects log output.
func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// Logf writes a formatted message if minVerb is within the configured
// verbosity.
func (l *Logger) Logf(minVerb int, format string, a ...interface{}) {
	l.Log(minVerb, fmt.Sprintf(format, a...))
}

// Log writes msg if minVerb is within the configured verbosity.
func (l *Logger) Log(minVerb int, msg string) {
	if minVerb < 0 {
		panic("logging: minimum verbosity cannot be negative")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if minVerb > l.verbosity {
		return
	}
	fmt.Fprintf(l.writer, "%v\t%v\n", time.Now().Format(l.format), msg)
}

// Default is the process-wide logger used by components that aren't handed
// an explicit *Logger.
var Default = New(Info)
