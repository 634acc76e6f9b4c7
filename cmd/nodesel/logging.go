// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"

	"github.com/nodesel/nodesel/internal/config"
	"github.com/nodesel/nodesel/internal/resolver"
)

// newLogger returns a slog logger writing through charmbracelet/log.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: "nodesel",
		Level:  log.Level(level),
	})
	return slog.New(handler)
}

// logLevel picks the configured level; --verbose lowers it to trace so every
// strategy decision is visible.
func logLevel(cfg *config.Config, verbose bool) slog.Level {
	if verbose {
		return resolver.LevelTrace
	}
	return cfg.LogLevel.SlogLevel()
}
