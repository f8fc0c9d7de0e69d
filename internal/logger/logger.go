// Package logger builds the process loggers: a log/slog logger for the server,
// resolver and search layers, and a zerolog logger for the fetch layer. Both
// write to stderr by default because stdout carries the stdio MCP transport.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a slog level.
// Valid levels are: debug, info, warn, error
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", level)
	}
}

// NewLogger creates a new structured logger with the specified level and
// format ("json" or "text"). A nil output writes to stderr.
func NewLogger(level, format string, output io.Writer) (*slog.Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s (valid: json, text)", format)
	}

	return slog.New(handler), nil
}

// NewFetchLogger creates the zerolog logger used by the fetch layer. A nil
// output writes a console rendering to stderr.
func NewFetchLogger(level string, output io.Writer) (zerolog.Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if output == nil {
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	zl := zerolog.InfoLevel
	switch slogLevel {
	case slog.LevelDebug:
		zl = zerolog.DebugLevel
	case slog.LevelWarn:
		zl = zerolog.WarnLevel
	case slog.LevelError:
		zl = zerolog.ErrorLevel
	}

	return zerolog.New(output).Level(zl).With().Timestamp().Logger(), nil
}

// Default creates a logger with info level and JSON output on stderr
func Default() *slog.Logger {
	logger, _ := NewLogger("info", "json", os.Stderr)
	return logger
}
