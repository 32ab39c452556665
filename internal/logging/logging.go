// Package logging builds the process logger from the log config section.
package logging

import (
	"io"
	"log/slog"

	"github.com/claude/kcalplanner/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a text slog logger writing to console, or to a rotating file
// when cfg.File is set. The closer flushes and closes that file.
func New(cfg config.LogConfig, console io.Writer) (*slog.Logger, io.Closer) {
	var w io.Writer = console
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			LocalTime:  true,
			Compress:   true,
		}
		w, closer = lj, lj
	}
	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return log, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
