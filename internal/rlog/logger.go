// Package rlog builds the structured logger used across the render
// pipeline, fanning out to a colourised stderr handler and an optional
// plain-text debug file via slog-multi instead of a single ad-hoc
// fmt.Fprintf-behind-a-closure logger.
package rlog

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// Options configures logger construction.
type Options struct {
	// Verbose enables debug-level stage-by-stage output on stderr.
	Verbose bool
	// DebugFile, if non-nil, receives a plain-text copy of all records
	// regardless of verbosity.
	DebugFile io.Writer
}

// New constructs the render logger. The returned logger is passed through
// renderctx.Context to every pipeline stage rather than stored in a package
// global.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	consoleHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTTY(os.Stderr),
	})

	if opts.DebugFile == nil {
		return slog.New(consoleHandler)
	}

	fileHandler := slog.NewTextHandler(opts.DebugFile, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler))
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Stage logs a single pipeline-stage transition at debug level, the unit of
// the structured stage-by-stage log emitted in verbose mode.
func Stage(l *slog.Logger, stage string, args ...any) {
	l.Debug(stage, args...)
}
