// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"github.com/nodesel/nodesel/pkg/nodeversion"
)

const (
	// NotApplicable means the strategy does not apply; evaluation continues.
	NotApplicable OutcomeKind = iota
	// Selected means the strategy picked a runtime; evaluation stops.
	Selected
	// Fatal means the strategy failed. A NoCompatibleVersionError stops resolution,
	// any other error lets the next strategy run.
	Fatal
)

type (
	// OutcomeKind tags an Outcome.
	OutcomeKind int

	// Outcome is what a single strategy decided.
	Outcome struct {
		Kind OutcomeKind
		// Version is the selected runtime. Set when Kind is Selected.
		Version nodeversion.ID
		// Path is set only by the custom strategy; version strategies leave path
		// construction to the orchestrator.
		Path string
		// Tag is the version label reported for a custom path.
		Tag     string
		Reason  string
		Warning string
		// Err is set when Kind is Fatal.
		Err error
	}

	// ResolvedRuntime is the result of a successful resolution.
	ResolvedRuntime struct {
		// Path is the interpreter path, already translated in container mode.
		Path string `json:"path"`
		// Version is the selected runtime, or Custom for an override.
		Version nodeversion.ID `json:"version"`
		// Tag is the label reported for the runtime, e.g. "node20" for a custom path.
		Tag string `json:"tag"`
		// Strategy names the strategy that selected the runtime.
		Strategy string `json:"strategy"`
		Reason   string `json:"reason"`
		Warning  string `json:"warning,omitempty"`
		// DetectedVersion is the semver reported by a container probe, if any.
		DetectedVersion string `json:"detected_version,omitempty"`
	}
)

// String returns the name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case NotApplicable:
		return "not-applicable"
	case Selected:
		return "selected"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

func notApplicable() Outcome {
	return Outcome{Kind: NotApplicable}
}

func selected(id nodeversion.ID, reason, warning string) Outcome {
	return Outcome{Kind: Selected, Version: id, Tag: string(id), Reason: reason, Warning: warning}
}

func fatal(err error) Outcome {
	return Outcome{Kind: Fatal, Err: err}
}
