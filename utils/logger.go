package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the process logger. Pretty output is meant for local
// development; production writes one JSON object per line to stdout.
func NewLogger(level string, pretty bool) zerolog.Logger {
	return newLogger(os.Stdout, level, pretty)
}

func newLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "catalog-api").
		Logger()
}
