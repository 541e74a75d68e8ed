// Package logger provides the printf-style logging functions used throughout the batch engine.
// Output goes through log/slog. The default handler is a tint console handler;
// Configure can switch to a JSON handler for machine-readable output.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
)

// LogLevel is a logging level. Smaller values are more detailed.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// Options controls the handler installed by Configure.
type Options struct {
	Level      string    // DEBUG, INFO, WARN, ERROR, FATAL
	Format     string    // console (default) or json
	Output     io.Writer // defaults to os.Stdout
	TimeFormat string    // console only
	NoColor    bool
}

var (
	levelVar = new(slog.LevelVar)
	current  atomic.Pointer[slog.Logger]
)

func init() {
	Configure(Options{})
}

// Configure replaces the process-wide handler.
func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Level != "" {
		SetLogLevel(opts.Level)
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: levelVar})
	default:
		timeFormat := opts.TimeFormat
		if timeFormat == "" {
			timeFormat = time.DateTime
		}
		handler = tint.NewHandler(out, &tint.Options{
			Level:      levelVar,
			TimeFormat: timeFormat,
			NoColor:    opts.NoColor,
		})
	}
	current.Store(slog.New(handler))
}

// SetLogLevel sets the global log level. Unknown values fall back to INFO.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		levelVar.Set(slog.LevelDebug)
	case "INFO":
		levelVar.Set(slog.LevelInfo)
	case "WARN", "WARNING":
		levelVar.Set(slog.LevelWarn)
	case "ERROR", "FATAL":
		levelVar.Set(slog.LevelError)
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		levelVar.Set(slog.LevelInfo)
	}
}

// GetLogLevel returns the active level.
func GetLogLevel() LogLevel {
	switch l := levelVar.Level(); {
	case l <= slog.LevelDebug:
		return LevelDebug
	case l <= slog.LevelInfo:
		return LevelInfo
	case l <= slog.LevelWarn:
		return LevelWarn
	default:
		return LevelError
	}
}

// Logger returns the underlying structured logger.
func Logger() *slog.Logger {
	return current.Load()
}

// With returns a structured logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return current.Load().With(args...)
}

func logf(level slog.Level, format string, v ...any) {
	l := current.Load()
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

// Debugf logs at DEBUG level.
func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v...) }

// Infof logs at INFO level.
func Infof(format string, v ...any) { logf(slog.LevelInfo, format, v...) }

// Warnf logs at WARN level.
func Warnf(format string, v ...any) { logf(slog.LevelWarn, format, v...) }

// Errorf logs at ERROR level.
func Errorf(format string, v ...any) { logf(slog.LevelError, format, v...) }

// Fatalf logs at ERROR level and exits with status 1.
func Fatalf(format string, v ...any) {
	current.Load().Log(context.Background(), slog.LevelError, fmt.Sprintf(format, v...), slog.Bool("fatal", true))
	os.Exit(1)
}
