// Package sysutil configures process-wide facilities: the global zerolog
// logger and its level.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel sets the global zerolog level. Unknown or empty values fall
// back to info; "warning" is accepted for warn.
func SetLogLevel(lvl string) {
	s := strings.ToLower(strings.TrimSpace(lvl))
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" || level == zerolog.NoLevel || level == zerolog.TraceLevel || level == zerolog.Disabled {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// LoggerOptions controls SetupLogger.
type LoggerOptions struct {
	Level   string
	Pretty  bool
	Service string
	Version string
	// Out defaults to os.Stdout.
	Out io.Writer
}

// SetupLogger replaces the global logger. Pretty switches to the console
// writer for local development; otherwise output is JSON with RFC3339Nano
// UTC timestamps.
func SetupLogger(o LoggerOptions) zerolog.Logger {
	SetLogLevel(o.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	out := o.Out
	if out == nil {
		out = os.Stdout
	}
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if o.Service != "" {
		ctx = ctx.Str("service", o.Service)
	}
	if o.Version != "" {
		ctx = ctx.Str("version", o.Version)
	}
	l := ctx.Logger()
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
