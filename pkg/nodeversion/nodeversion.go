// SPDX-License-Identifier: MPL-2.0

package nodeversion

import (
	"errors"
	"fmt"
	"strings"
)

// Supported Node.js runtime identifiers, newest first.
const (
	// Node24 is the newest supported runtime.
	Node24 ID = "node24"
	// Node20_1 is the previous LTS runtime.
	Node20_1 ID = "node20_1"
	// Node16 is end-of-life.
	Node16 ID = "node16"
	// Node10 is end-of-life.
	Node10 ID = "node10"
	// Node6 is the legacy default handler runtime. Its externals folder is "node".
	Node6 ID = "node6"
	// Custom marks a user-supplied interpreter path.
	Custom ID = "custom"

	// None is the zero value and means "no declared affinity".
	None ID = ""
)

// ErrInvalidID is the sentinel error wrapped by InvalidIDError.
var ErrInvalidID = errors.New("invalid node version")

type (
	// ID identifies one supported Node.js major runtime.
	ID string

	// InvalidIDError is returned when an ID is not one of the known runtimes.
	InvalidIDError struct {
		Value ID
	}

	info struct {
		folder  string
		handler string
		eol     bool
		// probed runtimes are checked for glibc compatibility before use.
		probed bool
	}
)

var (
	// ordered newest to oldest
	all = []ID{Node24, Node20_1, Node16, Node10, Node6}

	infos = map[ID]info{
		Node24:   {folder: "node24", handler: "Node24", probed: true},
		Node20_1: {folder: "node20_1", handler: "Node20_1", probed: true},
		Node16:   {folder: "node16", handler: "Node16", eol: true},
		Node10:   {folder: "node10", handler: "Node10", eol: true},
		Node6:    {folder: "node", handler: "Node", eol: true},
	}
)

// Error implements the error interface.
func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid node version %q (valid: %s)", e.Value, strings.Join(Names(), ", "))
}

// Unwrap returns ErrInvalidID so callers can use errors.Is.
func (e *InvalidIDError) Unwrap() error { return ErrInvalidID }

// All returns the supported runtimes ordered newest to oldest. Custom is not included.
func All() []ID {
	out := make([]ID, len(all))
	copy(out, all)
	return out
}

// Names returns the string form of All.
func Names() []string {
	names := make([]string, 0, len(all))
	for _, id := range all {
		names = append(names, string(id))
	}
	return names
}

// String returns the string representation of the ID.
func (id ID) String() string { return string(id) }

// Validate returns nil if id is a known runtime or Custom.
func (id ID) Validate() error {
	if id == Custom {
		return nil
	}
	if _, ok := infos[id]; ok {
		return nil
	}
	return &InvalidIDError{Value: id}
}

// Folder returns the externals folder name holding this runtime.
func (id ID) Folder() string {
	return infos[id].folder
}

// HandlerName returns the task handler name that declares this runtime.
func (id ID) HandlerName() string {
	if id == None {
		return infos[Node6].handler
	}
	if id == Custom {
		return "Custom"
	}
	return infos[id].handler
}

// IsEOL reports whether the runtime has reached end-of-life.
func (id ID) IsEOL() bool {
	return infos[id].eol
}

// Probed reports whether the runtime must pass a glibc compatibility probe.
func (id ID) Probed() bool {
	return infos[id].probed
}

// Older returns the next-older supported runtime, or false for the oldest one.
func (id ID) Older() (ID, bool) {
	for i, v := range all {
		if v == id && i+1 < len(all) {
			return all[i+1], true
		}
	}
	return None, false
}

// NewerThan reports whether id is strictly newer than other.
func (id ID) NewerThan(other ID) bool {
	return rank(id) >= 0 && rank(other) >= 0 && rank(id) < rank(other)
}

func rank(id ID) int {
	for i, v := range all {
		if v == id {
			return i
		}
	}
	return -1
}

// ParseHandler maps a task handler name or externals folder name to an ID.
// Matching is case-insensitive. An empty name yields None.
func ParseHandler(name string) (ID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return None, nil
	}
	for _, id := range all {
		i := infos[id]
		if strings.EqualFold(name, i.handler) || strings.EqualFold(name, i.folder) || strings.EqualFold(name, string(id)) {
			return id, nil
		}
	}
	return None, &InvalidIDError{Value: ID(name)}
}
