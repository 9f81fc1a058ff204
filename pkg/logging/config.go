// Package logging provides high-level, string-driven logger setup on top of
// zerolog, mirroring the configuration shape of the systems this module was
// grown alongside: a small set of string settings (level, format, output)
// assemble a ready-to-use component logger with no further wiring.
//
// Configuration Sources:
//   - The caller passes the setting strings to ConfigureFromSettings; this
//     package reads no environment variables, files or flags itself.
//
// Supported Options:
//   - Level: "debug", "info", "warn", "error" (case-insensitive)
//   - Format: "text" (console-friendly) or "json" (structured)
//   - Output: "console", "file", "both"
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Config holds fully-resolved logger settings. The zero value is not
// useful on its own; build one via ConfigureFromSettings or populate it
// directly for programmatic setups.
type Config struct {
	Level     zerolog.Level
	Format    Format
	Output    io.Writer
	Component string
}

// Format selects the wire shape of emitted log records.
type Format int

const (
	TextFormat Format = iota
	JSONFormat
)

// ParseLevel maps a case-insensitive level name to a zerolog.Level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("logging: invalid log level %q", level)
	}
}

// NewLogger builds a *zerolog.Logger from a resolved Config.
func NewLogger(cfg Config) *zerolog.Logger {
	var w io.Writer = cfg.Output
	if w == nil {
		w = os.Stdout
	}
	if cfg.Format == TextFormat {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(w).Level(cfg.Level).With().Timestamp().Logger()
	if cfg.Component != "" {
		logger = logger.With().Str("component", cfg.Component).Logger()
	}
	return &logger
}

// ConfigureFromSettings builds a *zerolog.Logger from string-based
// parameters, the way an application wires its logging up from
// environment variables or a config file.
//
// filename is required when output is "file" or "both" and ignored for
// "console". File output is opened append-only, creating the parent
// directory if necessary.
func ConfigureFromSettings(level, format, output, filename string) (*zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var logFormat Format
	switch strings.ToLower(format) {
	case "json":
		logFormat = JSONFormat
	case "text", "":
		logFormat = TextFormat
	default:
		return nil, fmt.Errorf("logging: invalid log format %q", format)
	}

	var writer io.Writer
	switch strings.ToLower(output) {
	case "console", "":
		writer = os.Stdout
	case "file":
		writer, err = createFileOutput(filename)
		if err != nil {
			return nil, err
		}
	case "both":
		fw, err := createFileOutput(filename)
		if err != nil {
			return nil, err
		}
		writer = io.MultiWriter(os.Stdout, fw)
	default:
		return nil, fmt.Errorf("logging: invalid log output %q", output)
	}

	return NewLogger(Config{Level: lvl, Format: logFormat, Output: writer}), nil
}

func createFileOutput(filename string) (io.Writer, error) {
	if filename == "" {
		return nil, fmt.Errorf("logging: file path required for file/both output")
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: opening log file: %w", err)
	}
	return f, nil
}
