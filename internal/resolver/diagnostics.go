// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"log/slog"
)

// LevelTrace is below slog.LevelDebug and carries per-strategy decisions.
const LevelTrace = slog.Level(-8)

// Event names emitted through an Emitter.
const (
	EventNodeVersionSelection = "NodeVersionSelection"
	EventNodeVersionFailure   = "NodeVersionSelectionFailure"
)

type (
	// Diagnostics receives operator-facing resolution messages.
	Diagnostics interface {
		Trace(msg string, args ...any)
		Warn(msg string, args ...any)
		Error(msg string, args ...any)
	}

	// Emitter publishes structured telemetry events.
	Emitter interface {
		Emit(ctx context.Context, event string, fields map[string]string)
	}

	// DirectoryResolver locates the agent's externals directory.
	DirectoryResolver interface {
		ExternalsRoot() string
	}

	// StaticDirectory is a DirectoryResolver with a fixed root.
	StaticDirectory string

	logDiagnostics struct {
		logger *slog.Logger
	}

	discardEmitter struct{}
)

// ExternalsRoot returns the fixed root.
func (d StaticDirectory) ExternalsRoot() string { return string(d) }

// NewLogDiagnostics returns Diagnostics backed by a slog.Logger.
// Trace messages are logged at LevelTrace.
func NewLogDiagnostics(logger *slog.Logger) Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return &logDiagnostics{logger: logger}
}

func (d *logDiagnostics) Trace(msg string, args ...any) {
	d.logger.Log(context.Background(), LevelTrace, msg, args...)
}

func (d *logDiagnostics) Warn(msg string, args ...any) { d.logger.Warn(msg, args...) }

func (d *logDiagnostics) Error(msg string, args ...any) { d.logger.Error(msg, args...) }

func (discardEmitter) Emit(context.Context, string, map[string]string) {}
