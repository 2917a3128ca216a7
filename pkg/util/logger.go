package util

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFile describes an optional size-rotated log file. Logs always go to
// stdout; when Path is set they are also written to the file.
type LogFile struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// LogOptions tune a process logger. Level overrides the env default
// (debug in development, info elsewhere) when it names a slog level.
type LogOptions struct {
	Service string
	Level   string
	File    LogFile
}

func NewLogger(env string) *slog.Logger {
	return NewLoggerWithOptions(env, LogOptions{})
}

func NewLoggerWithOptions(env string, opts LogOptions) *slog.Logger {
	var out io.Writer = os.Stdout
	if f := opts.File; f.Path != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   f.Path,
			MaxSize:    f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAge:     f.MaxAgeDays,
			Compress:   true,
		})
	}

	logger := newLogger(env, opts.Level, out)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	return logger
}

func newLogger(env, level string, out io.Writer) *slog.Logger {
	dev := env == "development"

	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if dev {
		handlerOpts.Level = slog.LevelDebug
	}
	if lvl, ok := parseLevel(level); ok {
		handlerOpts.Level = lvl
	}

	if dev {
		return slog.New(slog.NewTextHandler(out, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(out, handlerOpts))
}

func parseLevel(s string) (slog.Level, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, false
	}
	return lvl, true
}

// NopLogger discards everything. Used by tests and tools.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
