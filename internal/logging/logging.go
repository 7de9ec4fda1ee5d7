// Package logging builds the zerolog loggers used by the command line tool.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a timestamped JSON logger writing to w.
func New(w io.Writer, verbose bool) zerolog.Logger {
	return zerolog.New(w).
		Level(levelFor(verbose)).
		With().
		Timestamp().
		Logger()
}

// NewConsole returns a human readable logger on stderr
func NewConsole(verbose bool) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return New(console, verbose)
}

// Component tags every event of the returned logger with a component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func levelFor(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
