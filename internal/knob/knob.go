// SPDX-License-Identifier: MPL-2.0

package knob

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Knob names. Each name doubles as the environment variable that sets it.
const (
	UseNode24                    = "AGENT_USE_NODE24"
	UseNode24WithHandlerData     = "AGENT_USE_NODE24_WITH_HANDLER_DATA"
	UseNode20_1                  = "AGENT_USE_NODE20_1"
	UseNode16                    = "AGENT_USE_NODE16"
	UseNode10                    = "AGENT_USE_NODE10"
	UseNode6                     = "AGENT_USE_NODE6"
	RestrictEOLNodeVersions      = "AGENT_RESTRICT_EOL_NODE_VERSIONS"
	UseNode24InUnsupportedSystem = "AGENT_USE_NODE24_IN_UNSUPPORTED_SYSTEM"
	UseNode20InUnsupportedSystem = "AGENT_USE_NODE20_IN_UNSUPPORTED_SYSTEM"
)

// ErrInvalidAssignment is the sentinel error wrapped by InvalidAssignmentError.
var ErrInvalidAssignment = errors.New("invalid knob assignment")

type (
	// Knob describes one feature flag.
	Knob struct {
		Name        string
		Description string
		Default     string
	}

	// Source looks up raw knob values.
	Source interface {
		Lookup(name string) (string, bool)
	}

	// MapSource serves knob values from an in-memory map.
	MapSource map[string]string

	// EnvSource serves knob values from environment variables.
	EnvSource struct {
		lookupEnv func(string) (string, bool)
	}

	// Reader resolves knob values across sources. It satisfies the
	// GetFlag-style reader the resolver consumes.
	Reader struct {
		sources []Source
	}

	// InvalidAssignmentError is returned when a NAME=VALUE assignment cannot be parsed.
	InvalidAssignmentError struct {
		Value string
	}
)

var catalogue = []Knob{
	{Name: UseNode24, Description: "Force the node24 runtime for every Node handler", Default: "false"},
	{Name: UseNode24WithHandlerData, Description: "Allow tasks declaring the Node24 handler to run on node24", Default: "false"},
	{Name: UseNode20_1, Description: "Force the node20_1 runtime for every Node handler", Default: "false"},
	{Name: UseNode16, Description: "Force the node16 runtime for every Node handler", Default: "false"},
	{Name: UseNode10, Description: "Force the node10 runtime for every Node handler", Default: "false"},
	{Name: UseNode6, Description: "Force the legacy node runtime for every Node handler", Default: "false"},
	{Name: RestrictEOLNodeVersions, Description: "Forbid end-of-life Node runtimes; upgrade or fail instead", Default: "false"},
	{Name: UseNode24InUnsupportedSystem, Description: "Treat node24 as glibc-compatible without probing", Default: "false"},
	{Name: UseNode20InUnsupportedSystem, Description: "Treat node20_1 as glibc-compatible without probing", Default: "false"},
}

// Catalogue returns every known knob sorted by name.
func Catalogue() []Knob {
	out := slices.Clone(catalogue)
	slices.SortFunc(out, func(a, b Knob) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Lookup returns the catalogue entry for name.
func Lookup(name string) (Knob, bool) {
	for _, k := range catalogue {
		if k.Name == name {
			return k, true
		}
	}
	return Knob{}, false
}

// Error implements the error interface.
func (e *InvalidAssignmentError) Error() string {
	return fmt.Sprintf("invalid knob assignment %q (expected NAME=VALUE)", e.Value)
}

// Unwrap returns ErrInvalidAssignment for errors.Is.
func (e *InvalidAssignmentError) Unwrap() error { return ErrInvalidAssignment }

// Lookup implements Source.
func (m MapSource) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// NewEnvSource creates a Source backed by os.LookupEnv.
func NewEnvSource() *EnvSource {
	return &EnvSource{lookupEnv: os.LookupEnv}
}

// Lookup implements Source.
func (s *EnvSource) Lookup(name string) (string, bool) {
	return s.lookupEnv(name)
}

// NewReader creates a Reader that consults sources in order.
func NewReader(sources ...Source) *Reader {
	return &Reader{sources: sources}
}

// GetFlag returns the effective value for name, or the catalogue default when no
// source sets it. Unknown knobs without a value yield "".
func (r *Reader) GetFlag(name string) string {
	for _, src := range r.sources {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(name); ok {
			return strings.TrimSpace(v)
		}
	}
	if k, ok := Lookup(name); ok {
		return k.Default
	}
	return ""
}

// Bool interprets the effective value of name as a boolean.
func (r *Reader) Bool(name string) bool {
	return ParseBool(r.GetFlag(name))
}

// ParseBool interprets a knob value. true, 1, yes and on are truthy,
// case-insensitively; anything else is false.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// ParseAssignments parses NAME=VALUE pairs into a MapSource.
func ParseAssignments(assignments []string) (MapSource, error) {
	out := MapSource{}
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &InvalidAssignmentError{Value: a}
		}
		out[name] = value
	}
	return out, nil
}
