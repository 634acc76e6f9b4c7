// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// DefaultExternalsMountTarget is where the agent mounts its externals directory
// inside job containers.
const DefaultExternalsMountTarget MountTargetPath = "/__a/externals"

var (
	// ErrInvalidHostFilesystemPath is the sentinel error wrapped by InvalidHostFilesystemPathError.
	ErrInvalidHostFilesystemPath = errors.New("invalid host filesystem path")

	// ErrInvalidMountTargetPath is the sentinel error wrapped by InvalidMountTargetPathError.
	ErrInvalidMountTargetPath = errors.New("invalid container filesystem path")

	// ErrInvalidMount is the sentinel error wrapped by InvalidMountError.
	ErrInvalidMount = errors.New("invalid mount")
)

type (
	// HostFilesystemPath is an absolute path on the agent host.
	HostFilesystemPath string

	// InvalidHostFilesystemPathError is returned when a HostFilesystemPath is not absolute.
	InvalidHostFilesystemPathError struct {
		Value HostFilesystemPath
	}

	// MountTargetPath is an absolute POSIX path inside a container.
	MountTargetPath string

	// InvalidMountTargetPathError is returned when a MountTargetPath is not absolute.
	InvalidMountTargetPathError struct {
		Value MountTargetPath
	}

	// Mount pairs a host directory with its location inside the container.
	Mount struct {
		HostPath      HostFilesystemPath
		ContainerPath MountTargetPath
	}

	// InvalidMountError wraps the individual field errors of a Mount.
	InvalidMountError struct {
		Value     Mount
		FieldErrs []error
	}

	// MountTranslator maps host paths under known mounts to container paths.
	MountTranslator struct {
		// sorted longest host path first so nested mounts win
		mounts []Mount
	}
)

// String returns the string representation of the HostFilesystemPath.
func (p HostFilesystemPath) String() string { return string(p) }

// Validate returns nil if the path is absolute on the host.
func (p HostFilesystemPath) Validate() error {
	if strings.TrimSpace(string(p)) == "" || !filepath.IsAbs(string(p)) {
		return &InvalidHostFilesystemPathError{Value: p}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidHostFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid host filesystem path %q: must be absolute", e.Value)
}

// Unwrap returns ErrInvalidHostFilesystemPath for errors.Is.
func (e *InvalidHostFilesystemPathError) Unwrap() error { return ErrInvalidHostFilesystemPath }

// String returns the string representation of the MountTargetPath.
func (p MountTargetPath) String() string { return string(p) }

// Validate returns nil if the path is an absolute POSIX path.
func (p MountTargetPath) Validate() error {
	if !path.IsAbs(string(p)) {
		return &InvalidMountTargetPathError{Value: p}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidMountTargetPathError) Error() string {
	return fmt.Sprintf("invalid container filesystem path %q: must be absolute", e.Value)
}

// Unwrap returns ErrInvalidMountTargetPath for errors.Is.
func (e *InvalidMountTargetPathError) Unwrap() error { return ErrInvalidMountTargetPath }

// Validate returns nil if both sides of the mount are valid.
func (m Mount) Validate() error {
	var errs []error
	if err := m.HostPath.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := m.ContainerPath.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidMountError{Value: m, FieldErrs: errs}
	}
	return nil
}

// String returns the mount in "host:container" form.
func (m Mount) String() string {
	return string(m.HostPath) + ":" + string(m.ContainerPath)
}

// Error implements the error interface.
func (e *InvalidMountError) Error() string {
	return fmt.Sprintf("invalid mount %s: %d field error(s): %v", e.Value, len(e.FieldErrs), errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidMount for errors.Is.
func (e *InvalidMountError) Unwrap() error { return ErrInvalidMount }

// NewMountTranslator validates the mounts and returns a translator for them.
func NewMountTranslator(mounts ...Mount) (*MountTranslator, error) {
	out := make([]Mount, 0, len(mounts))
	for _, m := range mounts {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		out = append(out, Mount{
			HostPath:      HostFilesystemPath(filepath.Clean(string(m.HostPath))),
			ContainerPath: MountTargetPath(path.Clean(string(m.ContainerPath))),
		})
	}
	slices.SortStableFunc(out, func(a, b Mount) int { return len(b.HostPath) - len(a.HostPath) })
	return &MountTranslator{mounts: out}, nil
}

// Translate returns the container path for hostPath. The path is translated
// lexically, so host symlinks keep their names inside the container. Paths
// outside every mount are returned unchanged.
func (t *MountTranslator) Translate(hostPath string) string {
	if p, ok := t.Lookup(hostPath); ok {
		return p
	}
	return hostPath
}

// Lookup is Translate that also reports whether a mount matched.
func (t *MountTranslator) Lookup(hostPath string) (string, bool) {
	clean := filepath.Clean(hostPath)
	for _, m := range t.mounts {
		rel, err := filepath.Rel(string(m.HostPath), clean)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		joined, err := securejoin.SecureJoinVFS(string(m.ContainerPath), filepath.ToSlash(rel), lexicalFS{})
		if err != nil {
			continue
		}
		return filepath.ToSlash(joined), true
	}
	return "", false
}

// lexicalFS is a securejoin.VFS in which nothing exists, so joins are scoped to
// the mount target without consulting the host filesystem.
type lexicalFS struct{}

func (lexicalFS) Lstat(name string) (os.FileInfo, error) {
	return nil, &os.PathError{Op: "lstat", Path: name, Err: os.ErrNotExist}
}

func (lexicalFS) Readlink(name string) (string, error) {
	return "", &os.PathError{Op: "readlink", Path: name, Err: os.ErrNotExist}
}

// Mounts returns a copy of the configured mounts, longest host path first.
func (t *MountTranslator) Mounts() []Mount {
	return slices.Clone(t.mounts)
}
