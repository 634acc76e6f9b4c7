// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/nodesel/nodesel/internal/resolver"
)

type (
	// LogEmitter writes each event as one structured log record.
	LogEmitter struct {
		logger *slog.Logger
		level  slog.Level
	}

	// Multi fans an event out to several emitters in order.
	Multi []resolver.Emitter
)

var (
	_ resolver.Emitter = (*LogEmitter)(nil)
	_ resolver.Emitter = Multi(nil)
)

// NewLogEmitter returns an emitter logging at level. A nil logger uses slog.Default.
func NewLogEmitter(logger *slog.Logger, level slog.Level) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger, level: level}
}

// Emit logs the event with its fields sorted by key.
func (e *LogEmitter) Emit(ctx context.Context, event string, fields map[string]string) {
	attrs := make([]slog.Attr, 0, len(fields)+1)
	attrs = append(attrs, slog.String("event", event))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		attrs = append(attrs, slog.String(k, fields[k]))
	}
	e.logger.LogAttrs(ctx, e.level, "telemetry", attrs...)
}

// Emit forwards the event to every emitter.
func (m Multi) Emit(ctx context.Context, event string, fields map[string]string) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, event, fields)
		}
	}
}
