// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nodesel/nodesel/internal/knob"
	"github.com/nodesel/nodesel/pkg/nodeversion"
)

// ErrNoCompatibleVersion is the sentinel error wrapped by NoCompatibleVersionError.
var ErrNoCompatibleVersion = errors.New("no compatible node runtime")

// NoCompatibleVersionError is returned when no runtime can serve the handler
// under the current policy. It always ends resolution.
type NoCompatibleVersionError struct {
	// Handler is the task handler name, e.g. "Node16".
	Handler string
	Mode    Mode
	// Desired is the runtime the failing strategy wanted, if any.
	Desired nodeversion.ID
	// Incompatible lists the runtimes that failed glibc compatibility, newest first.
	Incompatible []nodeversion.ID
	// EOLRestricted is true when the end-of-life policy blocked the remaining candidates.
	EOLRestricted bool
	// Exhausted is true when every strategy declined or failed validation.
	Exhausted bool
}

// Error implements the error interface.
func (e *NoCompatibleVersionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no compatible node runtime for handler %s (%s)", e.Handler, e.Mode)
	if len(e.Incompatible) > 0 {
		names := make([]string, 0, len(e.Incompatible))
		for _, id := range e.Incompatible {
			names = append(names, string(id))
		}
		fmt.Fprintf(&b, ": %s incompatible with the host C library", strings.Join(names, ", "))
	}
	switch {
	case e.EOLRestricted:
		fmt.Fprintf(&b, "; %s forbids end-of-life runtimes", knob.RestrictEOLNodeVersions)
	case e.Exhausted:
		b.WriteString("; every candidate runtime was rejected")
	}
	return b.String()
}

// Unwrap returns ErrNoCompatibleVersion for errors.Is.
func (e *NoCompatibleVersionError) Unwrap() error { return ErrNoCompatibleVersion }

// Suggestions lists operator remedies for the failure.
func (e *NoCompatibleVersionError) Suggestions() []string {
	var out []string
	if e.EOLRestricted {
		out = append(out, fmt.Sprintf("Set %s=false to allow end-of-life runtimes", knob.RestrictEOLNodeVersions))
	}
	if len(e.Incompatible) > 0 {
		out = append(out, "Run the job on a host or image with a newer glibc")
	}
	if e.Mode == ModeContainer {
		out = append(out, "Make sure the job container can execute the mounted node binaries")
	}
	out = append(out, "Update the task to a supported Node handler")
	return out
}
