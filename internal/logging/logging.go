// Package logging configures the diagnostic log shared by every component.
// Until Init is called, log output goes to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const fileName = "multicapture.log"

var (
	base    atomic.Pointer[zerolog.Logger]
	logMu   sync.Mutex
	logFile *os.File
)

func init() {
	l := newLogger(os.Stderr, zerolog.InfoLevel)
	base.Store(&l)
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	return zerolog.New(consoleWriter).Level(level).With().Timestamp().Int("pid", os.Getpid()).Logger()
}

// Init redirects the log to dir/multicapture.log (and stderr). An empty dir
// means the working directory.
func Init(dir string, debug bool) error {
	logMu.Lock()
	defer logMu.Unlock()

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory '%s': %w", dir, err)
	}

	f, err := os.OpenFile(filepath.Join(dir, fileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	l := newLogger(io.MultiWriter(f, os.Stderr), level)
	base.Store(&l)
	return nil
}

// Close flushes the log file and falls back to stderr.
func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		logFile.Sync()
		logFile.Close()
		logFile = nil
	}
	l := newLogger(os.Stderr, zerolog.InfoLevel)
	base.Store(&l)
}

// SetOutput replaces the log destination. Used by tests to capture output.
func SetOutput(w io.Writer, level zerolog.Level) {
	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	base.Store(&l)
}

// Logger is a component-scoped view of the shared log. It resolves the
// current destination on every call, so it is safe to create before Init.
type Logger struct {
	component string
}

// For returns the logger for a component.
func For(component string) Logger {
	return Logger{component: component}
}

func (l Logger) with() *zerolog.Logger {
	child := base.Load().With().Str("component", l.component).Logger()
	return &child
}

func (l Logger) Debug() *zerolog.Event { return l.with().Debug() }
func (l Logger) Info() *zerolog.Event  { return l.with().Info() }
func (l Logger) Warn() *zerolog.Event  { return l.with().Warn() }
func (l Logger) Error() *zerolog.Event { return l.with().Error() }

// Elapsed is a helper for duration fields in milliseconds.
func Elapsed(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
