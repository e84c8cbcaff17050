// Package log provides logging for testrig. Regular diagnostic messages go
// through slog with a tinted terminal handler; test steps are printed on a
// dedicated channel with their hierarchical number and indentation, matching
// the format scraped by downstream log consumers.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Level is the minimum diagnostic level a Logger emits.
type Level slog.Level

const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// ParseLevel converts a config string into a Level. Unknown values
// fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger wraps an slog.Logger and adds the step channel. The step counter
// tracks how many step lines were emitted since the last reset; retry
// coordination in reset mode clears it between attempts.
type Logger struct {
	sl      *slog.Logger
	writer  io.Writer
	noColor bool

	mu          sync.Mutex
	stepCounter int
}

type Option func(*Logger)

// WithWriter directs both diagnostic and step output to w.
func WithWriter(w io.Writer) Option {
	return func(l *Logger) {
		l.writer = w
	}
}

// WithNoColor disables ANSI colors regardless of terminal detection.
func WithNoColor(nc bool) Option {
	return func(l *Logger) {
		l.noColor = nc
	}
}

// New returns a Logger emitting at the given minimum level.
func New(level Level, opts ...Option) *Logger {
	l := &Logger{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(l)
	}

	noColor := l.noColor
	if !noColor {
		f, ok := l.writer.(*os.File)
		noColor = !ok || !isatty.IsTerminal(f.Fd())
	}
	l.noColor = noColor

	handler := tint.NewHandler(l.writer, &tint.Options{
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
		Level:      slog.Level(level),
	})
	l.sl = slog.New(handler)
	return l
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// Default returns the process-wide logger, creating it at info level on
// first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(LevelInfo)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

func (l *Logger) Debug(msg string, args ...any) { l.sl.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.sl.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.sl.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.sl.Error(msg, args...) }

// Step prints one step line: the hierarchical number, two spaces per indent
// level, then the content. Example: "1.1.1     Grandchild".
func (l *Logger) Step(hierarchical string, indentLevel int, content string) {
	l.mu.Lock()
	l.stepCounter++
	l.mu.Unlock()

	indent := strings.Repeat("  ", indentLevel)
	line := fmt.Sprintf("%s %s%s", hierarchical, indent, content)
	if l.noColor {
		fmt.Fprintln(l.writer, line)
		return
	}
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(l.writer, "%s %s%s\n", cyan(hierarchical), indent, content)
}

// StepCount reports how many step lines were emitted since the last reset.
func (l *Logger) StepCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stepCounter
}

// ResetStepCounter zeroes the step counter. Called between test cases and
// between retry attempts in reset mode.
func (l *Logger) ResetStepCounter() {
	l.mu.Lock()
	l.stepCounter = 0
	l.mu.Unlock()
}
