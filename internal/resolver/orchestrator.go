// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nodesel/nodesel/pkg/nodeversion"
	"github.com/nodesel/nodesel/pkg/platform"
)

const tracerName = "github.com/nodesel/nodesel/internal/resolver"

type (
	// Orchestrator runs a strategy chain and turns the winning outcome into a
	// ResolvedRuntime.
	Orchestrator struct {
		mode         Mode
		strategies   []Strategy
		dirs         DirectoryResolver
		diag         Diagnostics
		emitter      Emitter
		executor     ContainerExecutor
		probeTimeout time.Duration
		tracer       trace.Tracer
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)
)

// WithDiagnostics sets the sink for trace, warning and error messages.
func WithDiagnostics(d Diagnostics) Option {
	return func(o *Orchestrator) {
		o.diag = d
	}
}

// WithEmitter sets the telemetry emitter.
func WithEmitter(e Emitter) Option {
	return func(o *Orchestrator) {
		o.emitter = e
	}
}

// WithTracer sets the OpenTelemetry tracer. The global provider is used by default.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// WithStrategies replaces the strategy chain.
func WithStrategies(s ...Strategy) Option {
	return func(o *Orchestrator) {
		o.strategies = s
	}
}

// WithProbeTimeout bounds each container `node --version` probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.probeTimeout = d
		}
	}
}

// NewHostOrchestrator returns an orchestrator for runtimes launched by the agent.
// It also serves container-mode contexts when no live probe is wanted, translating
// the selected path.
func NewHostOrchestrator(dirs DirectoryResolver, opts ...Option) *Orchestrator {
	return newOrchestrator(ModeHost, HostStrategies(), dirs, nil, opts)
}

// NewContainerOrchestrator returns an orchestrator that validates each selection
// by running it inside the job container through exec.
func NewContainerOrchestrator(dirs DirectoryResolver, exec ContainerExecutor, opts ...Option) *Orchestrator {
	return newOrchestrator(ModeContainer, ContainerStrategies(), dirs, exec, opts)
}

func newOrchestrator(mode Mode, strategies []Strategy, dirs DirectoryResolver, exec ContainerExecutor, opts []Option) *Orchestrator {
	o := &Orchestrator{
		mode:         mode,
		strategies:   strategies,
		dirs:         dirs,
		diag:         NewLogDiagnostics(nil),
		emitter:      discardEmitter{},
		executor:     exec,
		probeTimeout: DefaultContainerProbeTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}

// Mode returns the environment the orchestrator was built for.
func (o *Orchestrator) Mode() Mode { return o.mode }

// Resolve selects the runtime for one task step.
//
// Strategies run in priority order and the first selection wins. A
// NoCompatibleVersionError is returned as-is. Other strategy failures, including
// panics, are logged and skipped. In container mode each non-custom selection
// must pass a live probe or the next strategy is tried.
func (o *Orchestrator) Resolve(ctx context.Context, rc *ResolutionContext) (_ *ResolvedRuntime, err error) {
	if err := o.validate(rc); err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "nodesel.Resolve", trace.WithAttributes(
		attribute.String("nodesel.handler", rc.handlerName()),
		attribute.String("nodesel.environment", rc.Mode.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	probed := map[string]probeResult{}
	for _, s := range o.strategies {
		out := o.evaluate(ctx, s, rc)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch out.Kind {
		case NotApplicable:
			continue
		case Fatal:
			var noCompat *NoCompatibleVersionError
			if errors.As(out.Err, &noCompat) {
				o.fail(ctx, rc, s.Name(), out.Err)
				return nil, out.Err
			}
			o.diag.Error("node strategy failed, trying next", "strategy", s.Name(), "error", out.Err)
			continue
		}

		res := o.build(rc, s, out)
		if o.executor != nil && out.Version != nodeversion.Custom {
			pr, seen := probed[res.Path]
			if !seen {
				pr = o.probeContainer(ctx, rc.ContainerID, res.Path)
				probed[res.Path] = pr
			}
			if !pr.ok {
				o.diag.Trace("node runtime failed container probe, trying next",
					"strategy", s.Name(), "path", res.Path, "detail", pr.detail)
				continue
			}
			res.DetectedVersion = pr.version
		}

		o.report(ctx, rc, res)
		span.SetAttributes(
			attribute.String("nodesel.version", string(res.Version)),
			attribute.String("nodesel.strategy", res.Strategy),
		)
		return res, nil
	}

	err = &NoCompatibleVersionError{Handler: rc.handlerName(), Mode: rc.Mode, Exhausted: true}
	o.fail(ctx, rc, "", err)
	return nil, err
}

func (o *Orchestrator) validate(rc *ResolutionContext) error {
	if rc == nil {
		return &InvalidContextError{FieldErrors: []error{errors.New("context is nil")}}
	}
	if err := rc.Validate(); err != nil {
		return err
	}
	if o.mode != ModeContainer {
		return nil
	}
	var errs []error
	if rc.Mode != ModeContainer {
		errs = append(errs, fmt.Errorf("container orchestrator requires %s mode, got %s", ModeContainer, rc.Mode))
	}
	if rc.ContainerID == "" {
		errs = append(errs, errors.New("container id is required"))
	}
	if o.executor == nil {
		errs = append(errs, errors.New("container executor is required"))
	}
	if len(errs) > 0 {
		return &InvalidContextError{FieldErrors: errs}
	}
	return nil
}

// evaluate runs one strategy, converting a panic into a recoverable failure.
func (o *Orchestrator) evaluate(ctx context.Context, s Strategy, rc *ResolutionContext) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = fatal(fmt.Errorf("strategy %s panicked: %v", s.Name(), r))
		}
	}()
	return Evaluate(ctx, s, rc)
}

func (o *Orchestrator) build(rc *ResolutionContext, s Strategy, out Outcome) *ResolvedRuntime {
	p := out.Path
	if out.Version != nodeversion.Custom {
		p = o.RuntimePath(rc, out.Version)
	}
	return &ResolvedRuntime{
		Path:     p,
		Version:  out.Version,
		Tag:      out.Tag,
		Strategy: s.Name(),
		Reason:   out.Reason,
		Warning:  out.Warning,
	}
}

// RuntimePath returns <externals>/<folder>/bin/<node executable> for id. In
// container mode the executable is always the Linux one and the path is translated.
func (o *Orchestrator) RuntimePath(rc *ResolutionContext, id nodeversion.ID) string {
	exe := platform.NodeExecutable(rc.hostOS())
	if rc.Mode == ModeContainer {
		exe = platform.NodeExecutable(platform.Linux)
	}
	p := filepath.Join(o.dirs.ExternalsRoot(), id.Folder(), "bin", exe)
	if rc.Mode == ModeContainer && rc.PathTranslator != nil {
		p = rc.PathTranslator.Translate(p)
	}
	return p
}

func (o *Orchestrator) report(ctx context.Context, rc *ResolutionContext, res *ResolvedRuntime) {
	o.diag.Trace("node runtime selected", "version", res.Tag, "strategy", res.Strategy, "reason", res.Reason)
	if res.Warning != "" {
		o.diag.Warn(res.Warning)
	}
	fields := map[string]string{
		"handler":          rc.handlerName(),
		"selected_version": res.Tag,
		"strategy":         res.Strategy,
		"reason":           res.Reason,
		"environment":      rc.Mode.String(),
		"has_warning":      strconv.FormatBool(res.Warning != ""),
		"is_alpine":        strconv.FormatBool(rc.HostIsAlpine),
		"eol_policy":       strconv.FormatBool(rc.eolPolicy()),
	}
	if res.Warning != "" {
		fields["warning"] = res.Warning
	}
	if res.DetectedVersion != "" {
		fields["probed_version"] = res.DetectedVersion
	}
	o.emitter.Emit(ctx, EventNodeVersionSelection, fields)
}

func (o *Orchestrator) fail(ctx context.Context, rc *ResolutionContext, strategy string, err error) {
	o.diag.Error("node runtime resolution failed", "handler", rc.handlerName(), "error", err)
	o.emitter.Emit(ctx, EventNodeVersionFailure, map[string]string{
		"handler":     rc.handlerName(),
		"strategy":    strategy,
		"environment": rc.Mode.String(),
		"error":       err.Error(),
	})
}
