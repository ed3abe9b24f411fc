package cmd

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// newLogger writes human-readable log lines to w. Debug output is enabled by
// --verbose; otherwise info and above.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
