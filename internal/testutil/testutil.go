// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nodesel/nodesel/pkg/nodeversion"
	"github.com/nodesel/nodesel/pkg/platform"
)

// NewExternals creates an agent externals directory holding a stub node
// executable for each id, laid out as <root>/<folder>/bin/<node executable>.
// With no ids every bundled runtime is created. The executable name follows
// the host OS.
func NewExternals(t testing.TB, ids ...nodeversion.ID) string {
	t.Helper()

	if len(ids) == 0 {
		ids = nodeversion.All()
	}
	root := t.TempDir()
	for _, id := range ids {
		MustWriteFile(t, ExternalsBinary(root, id), []byte("#!/bin/sh\n"), 0o755)
	}
	return root
}

// ExternalsBinary returns the stub executable path NewExternals creates for id.
func ExternalsBinary(root string, id nodeversion.ID) string {
	return filepath.Join(root, id.Folder(), "bin", platform.HostNodeExecutable())
}

// MustMkdirAll creates a directory along with any necessary parents.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, path string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(path, perm); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes data to path, creating parent directories as needed.
// The test fails immediately if the operation fails.
func MustWriteFile(t testing.TB, path string, data []byte, perm os.FileMode) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, data, perm); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustRemoveAll removes path and any children it contains.
// Unlike other Must* functions, this logs errors but doesn't fail the test,
// as cleanup failures are typically non-fatal.
func MustRemoveAll(t testing.TB, path string) {
	t.Helper()
	if err := os.RemoveAll(path); err != nil {
		t.Logf("warning: failed to remove %s: %v", path, err)
	}
}
