package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the service logger. Development gets debug level and
// console output; other environments log JSON at info level.
func NewLogger(appEnv string) zerolog.Logger {
	return NewLoggerTo(appEnv, os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func NewLoggerTo(appEnv string, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}

	return logger
}

// NopLogger returns a logger that discards everything. Components fall back to
// it when no logger is configured.
func NopLogger() *Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// Logger aliases zerolog.Logger so packages depend on infra rather than on
// the logging module directly.
type Logger = zerolog.Logger
