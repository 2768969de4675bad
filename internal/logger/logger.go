// Package logger configures structured logging for regap.
//
// All diagnostics go to stderr so that stdout stays reserved for command
// output. Levels are controlled per invocation (--verbose / --quiet) or via
// the REGAP_LOG environment variable.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var root = zerolog.New(console(os.Stderr)).With().Timestamp().Logger().Level(zerolog.InfoLevel)

func console(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
}

// Init sets the global level and output. Unrecognized levels fall back to
// info rather than failing; logging setup must never abort a run.
func Init(level string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	root = zerolog.New(console(out)).With().Timestamp().Logger().Level(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	if env := os.Getenv("REGAP_LOG"); env != "" {
		level = env
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "quiet", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// For returns a logger tagged with the originating component.
func For(component string) zerolog.Logger {
	return root.With().Str("component", component).Logger()
}
