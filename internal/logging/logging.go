// Package logging configures the process-wide slog logger.
//
// Logs go to stdout unless a file is configured, in which case the file is
// rotated by size and age.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string // "debug", "info", "warn", "error" (default: "info")
	Format string // "text" or "json" (default: "json")
	File   string // empty means stdout

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Output overrides File and stdout, used by tests.
	Output io.Writer
}

// ParseLevel converts a level name to slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// New builds a logger from opts. The returned closer releases the log file,
// if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	out, closer := output(opts)

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	case "json", "":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		if closer != nil {
			closer.Close()
		}
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if closer == nil {
		closer = io.NopCloser(nil)
	}
	return slog.New(handler), closer, nil
}

// Setup builds a logger and installs it as the slog default.
func Setup(opts Options) (io.Closer, error) {
	logger, closer, err := New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

func output(opts Options) (io.Writer, io.Closer) {
	if opts.Output != nil {
		return opts.Output, nil
	}
	if opts.File == "" {
		return os.Stdout, nil
	}

	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	return lj, lj
}
