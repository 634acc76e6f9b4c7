// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/nodesel/nodesel/internal/knob"
	"github.com/nodesel/nodesel/pkg/nodeversion"
)

const (
	// ModeHost resolves a runtime launched directly on the agent host.
	ModeHost Mode = "host"
	// ModeContainer resolves a runtime launched inside a job container.
	ModeContainer Mode = "container"
)

var (
	// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
	ErrInvalidMode = errors.New("invalid resolution mode")
	// ErrInvalidContext is the sentinel error wrapped by InvalidContextError.
	ErrInvalidContext = errors.New("invalid resolution context")
)

type (
	// Mode says where the selected runtime will be launched.
	Mode string

	// InvalidModeError is returned when a Mode is not host or container.
	InvalidModeError struct {
		Value Mode
	}

	// InvalidContextError is returned when a ResolutionContext has invalid fields.
	InvalidContextError struct {
		FieldErrors []error
	}

	// FlagReader reads agent knobs. Unset knobs return their default.
	FlagReader interface {
		GetFlag(name string) string
	}

	// CompatibilityView exposes glibc compatibility results.
	CompatibilityView interface {
		Incompatible(ctx context.Context, id nodeversion.ID) bool
	}

	// PathTranslator maps a host path to the equivalent path inside a container.
	PathTranslator interface {
		Translate(hostPath string) string
	}

	// ResolutionContext is the per-step snapshot a resolution works from.
	// Build one per task step and do not mutate it while a resolution runs.
	ResolutionContext struct {
		// Mode is host or container.
		Mode Mode
		// HostOS is the agent host's GOOS. Empty means the running OS.
		HostOS string
		// HostIsAlpine reports an Alpine Linux (musl) host.
		HostIsAlpine bool
		// HandlerAffinity is the runtime the task's handler declares. None means the
		// legacy default handler.
		HandlerAffinity nodeversion.ID
		// Flags reads knobs. Nil behaves as if every knob were at its default.
		Flags FlagReader
		// CustomOverridePath is a user-supplied interpreter path. Blank means absent.
		CustomOverridePath string
		// Compatibility reports glibc probe results. Nil treats every runtime as compatible.
		Compatibility CompatibilityView
		// PathTranslator is set only in container mode.
		PathTranslator PathTranslator
		// ContainerID identifies the running job container in container mode.
		ContainerID string
	}
)

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid resolution mode %q (valid: %s, %s)", e.Value, ModeHost, ModeContainer)
}

// Unwrap returns ErrInvalidMode for errors.Is.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// Validate returns nil if the mode is host or container.
func (m Mode) Validate() error {
	switch m {
	case ModeHost, ModeContainer:
		return nil
	default:
		return &InvalidModeError{Value: m}
	}
}

// Error implements the error interface.
func (e *InvalidContextError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid resolution context: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidContext for errors.Is.
func (e *InvalidContextError) Unwrap() error { return ErrInvalidContext }

// Validate checks the fields a resolution cannot work without.
func (rc *ResolutionContext) Validate() error {
	var errs []error
	if err := rc.Mode.Validate(); err != nil {
		errs = append(errs, err)
	}
	if rc.HandlerAffinity != nodeversion.None {
		if err := rc.HandlerAffinity.Validate(); err != nil {
			errs = append(errs, err)
		} else if rc.HandlerAffinity == nodeversion.Custom {
			errs = append(errs, fmt.Errorf("handler affinity cannot be %q", nodeversion.Custom))
		}
	}
	if rc.Mode == ModeHost && rc.PathTranslator != nil {
		errs = append(errs, errors.New("path translator is only valid in container mode"))
	}
	if len(errs) > 0 {
		return &InvalidContextError{FieldErrors: errs}
	}
	return nil
}

// flag interprets a knob as a boolean.
func (rc *ResolutionContext) flag(name string) bool {
	if rc.Flags != nil {
		return knob.ParseBool(rc.Flags.GetFlag(name))
	}
	if k, ok := knob.Lookup(name); ok {
		return knob.ParseBool(k.Default)
	}
	return false
}

// eolPolicy reports whether end-of-life runtimes are forbidden.
func (rc *ResolutionContext) eolPolicy() bool {
	return rc.flag(knob.RestrictEOLNodeVersions)
}

// customPath returns the trimmed override path, or "" when absent.
func (rc *ResolutionContext) customPath() string {
	return strings.TrimSpace(rc.CustomOverridePath)
}

// affinity returns the declared runtime, mapping no declaration to the legacy default.
func (rc *ResolutionContext) affinity() nodeversion.ID {
	if rc.HandlerAffinity == nodeversion.None {
		return nodeversion.Node6
	}
	return rc.HandlerAffinity
}

// handlerName names the task handler in operator-facing text.
func (rc *ResolutionContext) handlerName() string {
	return rc.affinity().HandlerName()
}

// hostOS returns the configured host OS or the running one.
func (rc *ResolutionContext) hostOS() string {
	if rc.HostOS != "" {
		return rc.HostOS
	}
	return runtime.GOOS
}

// compatible reports whether id can run against the C library. Runtimes that are
// not probed, or whose skip-probe knob is on, are compatible without consulting the view.
func (rc *ResolutionContext) compatible(ctx context.Context, id nodeversion.ID) bool {
	if !id.Probed() {
		return true
	}
	if skip, ok := skipProbeKnobs[id]; ok && rc.flag(skip) {
		return true
	}
	if rc.Compatibility == nil {
		return true
	}
	return !rc.Compatibility.Incompatible(ctx, id)
}

// skipProbeKnobs lists the knobs that declare a probed runtime compatible up front.
var skipProbeKnobs = map[nodeversion.ID]string{
	nodeversion.Node24:   knob.UseNode24InUnsupportedSystem,
	nodeversion.Node20_1: knob.UseNode20InUnsupportedSystem,
}
