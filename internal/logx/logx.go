// Package logx builds the single shared logger instance the rest of the
// process threads down into every worker and the supervisor: constructed
// once in main and passed down, so concurrent device goroutines can tag
// their lines with "device" without clobbering each other's output.
package logx

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options controls the logger main constructs. Level accepts any string
// log.ParseLevel understands ("debug", "info", "warn", "error"); an unknown
// value is silently treated as "info" rather than failing startup over a
// typo in a flag.
type Options struct {
	Level  string
	Output io.Writer
}

// New builds the process-wide logger. It reports timestamps but not the
// caller: a message plus a handful of key=value fields, not a
// debugger-oriented trace.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	logger.SetLevel(parseLevel(opts.Level))
	return logger
}

func parseLevel(s string) log.Level {
	if s == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Discard returns a logger that writes nowhere, for tests that need a
// *log.Logger but don't care about its output.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
