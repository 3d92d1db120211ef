// Package log provides named component loggers for itemsearch.
//
// Every component (the index builder, the aggregator, the engine, the API
// client) gets its own logger through ForService. Lines carry the level and
// the component name:
//
//	WARN [aggregator>] materials unavailable: gw2api: unavailable: 503
//
// Debug output is off by default and can be enabled globally (SetGlobalDebug)
// or for a single component (EnableDebugFor). Timings of the index build,
// aggregation passes and queries are emitted at debug level through Since.
//
// The package name shadows the standard library "log"; alias one of them when
// both are needed.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger writes lines for one named component.
type Logger struct {
	name  string
	warns atomic.Int64
}

var (
	globalDebug  atomic.Bool
	serviceDebug sync.Map // name -> *atomic.Bool
	loggers      sync.Map // name -> *Logger

	outMu sync.Mutex
	out   io.Writer = os.Stderr

	// now is swapped in tests to get stable timestamps.
	now = time.Now
)

// ForService returns the memoized logger for name.
func ForService(name string) *Logger {
	if name == "" {
		name = "unknown"
	}
	if l, ok := loggers.Load(name); ok {
		return l.(*Logger)
	}
	l, _ := loggers.LoadOrStore(name, &Logger{name: name})
	return l.(*Logger)
}

// SetOutput redirects every logger. A nil writer is ignored.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	outMu.Lock()
	out = w
	outMu.Unlock()
}

// SetGlobalDebug toggles debug output for all components.
func SetGlobalDebug(enabled bool) {
	globalDebug.Store(enabled)
}

// GlobalDebug reports whether debug output is enabled globally.
func GlobalDebug() bool {
	return globalDebug.Load()
}

// EnableDebugFor turns on debug output for a single component.
func EnableDebugFor(name string) {
	if name == "" {
		return
	}
	v, _ := serviceDebug.LoadOrStore(name, &atomic.Bool{})
	v.(*atomic.Bool).Store(true)
}

// DisableDebugFor turns off a per-component debug override.
func DisableDebugFor(name string) {
	if v, ok := serviceDebug.Load(name); ok {
		v.(*atomic.Bool).Store(false)
	}
}

// DebugEnabledFor reports whether debug lines for name are written.
func DebugEnabledFor(name string) bool {
	if globalDebug.Load() {
		return true
	}
	if v, ok := serviceDebug.Load(name); ok {
		return v.(*atomic.Bool).Load()
	}
	return false
}

// Name returns the component name.
func (l *Logger) Name() string {
	return l.name
}

// Warnings returns how many warnings this logger has written.
func (l *Logger) Warnings() int64 {
	return l.warns.Load()
}

func (l *Logger) write(level, format string, args ...any) {
	line := fmt.Sprintf("%s %s [%s>] %s\n",
		now().Format("2006/01/02 15:04:05.000000"), level, l.name, fmt.Sprintf(format, args...))

	outMu.Lock()
	defer outMu.Unlock()
	_, _ = io.WriteString(out, line)
}

func (l *Logger) Infof(format string, args ...any) {
	l.write(LevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.warns.Add(1)
	l.write(LevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.write(LevelError, format, args...)
}

// Debugf writes only when debug is enabled for this component.
func (l *Logger) Debugf(format string, args ...any) {
	if !DebugEnabledFor(l.name) {
		return
	}
	l.write(LevelDebug, format, args...)
}

// Since logs the time elapsed from start at debug level.
//
//	defer logger.Since("build", time.Now())
func (l *Logger) Since(what string, start time.Time) {
	l.Debugf("%s took %s", what, time.Since(start).Round(time.Microsecond))
}
