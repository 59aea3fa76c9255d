package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	base    *slog.Logger
	logFile *os.File
)

// Options selects the handler used by InitLogger.
type Options struct {
	// Level is one of debug, info, warn, error (default info).
	Level string
	// Format is text or json (default text).
	Format string
	// File, when set, receives a copy of every entry.
	File string
	// Writer replaces stdout as the primary destination when set.
	Writer io.Writer
}

// InitLogger installs a slog logger writing to opts.Writer (stdout by default)
// and, optionally, a log file.
func InitLogger(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	var out io.Writer = os.Stdout
	if opts.Writer != nil {
		out = opts.Writer
	}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", opts.File, err)
		}
		if logFile != nil {
			logFile.Close()
		}
		logFile = f
		out = io.MultiWriter(out, f)
	}

	base = newLogger(out, opts.Level, opts.Format)
	slog.SetDefault(base)
	return nil
}

// SetOutput redirects logging to w. Tests use it to capture or silence output.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	base = newLogger(w, level, "text")
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close releases the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// L returns the current logger, initialising a stdout text logger on first use.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		base = newLogger(os.Stdout, "info", "text")
	}
	return base
}

// With returns a logger carrying the given structured fields.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

func Debugf(format string, v ...interface{}) {
	L().Debug(fmt.Sprintf(format, v...))
}

func Info(format string, v ...interface{}) {
	L().Info(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	Info(format, v...)
}

func Warn(format string, v ...interface{}) {
	L().Warn(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	Warn(format, v...)
}

func Error(format string, v ...interface{}) {
	L().Error(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	Error(format, v...)
}
