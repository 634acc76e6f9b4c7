// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// EngineTypePodman selects the Podman CLI.
	EngineTypePodman EngineType = "podman"
	// EngineTypeDocker selects the Docker CLI.
	EngineTypeDocker EngineType = "docker"
)

var (
	// ErrEngineNotAvailable is the sentinel error wrapped by EngineNotAvailableError.
	ErrEngineNotAvailable = errors.New("container engine not available")

	// ErrInvalidEngineType is the sentinel error wrapped by InvalidEngineTypeError.
	ErrInvalidEngineType = errors.New("invalid container engine type")
)

type (
	// Engine is the subset of a container CLI needed to probe a running container.
	Engine interface {
		// Name returns the engine name (docker or podman).
		Name() string
		// Available checks if the engine is installed and its daemon reachable.
		Available() bool
		// Version returns the engine version.
		Version(ctx context.Context) (string, error)
		// Running reports whether the container exists and is running.
		Running(ctx context.Context, containerID ContainerID) (bool, error)
		// Exec runs a command in a running container and captures its output.
		Exec(ctx context.Context, containerID ContainerID, command []string, opts ExecOptions) (*ExecResult, error)
	}

	// ExecOptions tunes a single exec call.
	ExecOptions struct {
		// WorkDir is the working directory inside the container.
		WorkDir string
		// Env contains extra environment variables.
		Env map[string]string
		// User runs the command as a different user.
		User string
	}

	// ExecResult contains the result of a command run in a container.
	ExecResult struct {
		ContainerID ContainerID
		ExitCode    int
		// Output is the combined stdout and stderr.
		Output string
	}

	// EngineType identifies the container engine type.
	EngineType string

	// InvalidEngineTypeError is returned when an EngineType is not recognized.
	InvalidEngineTypeError struct {
		Value EngineType
	}

	// EngineNotAvailableError is returned when a container engine is not available.
	EngineNotAvailableError struct {
		Engine EngineType
		Reason string
	}
)

// String returns the string representation of the EngineType.
func (t EngineType) String() string { return string(t) }

// Validate returns nil if the engine type is docker or podman.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeDocker, EngineTypePodman:
		return nil
	default:
		return &InvalidEngineTypeError{Value: t}
	}
}

// Error implements the error interface.
func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: %s, %s)", e.Value, EngineTypeDocker, EngineTypePodman)
}

// Unwrap returns ErrInvalidEngineType for errors.Is.
func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrEngineNotAvailable for errors.Is.
func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// NewEngine returns the preferred engine, falling back to the other one when the
// preferred CLI is missing or cannot reach its daemon.
func NewEngine(preferredType EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	if err := preferredType.Validate(); err != nil {
		return nil, err
	}

	candidates := []Engine{NewDockerEngine(opts...), NewPodmanEngine(opts...)}
	if preferredType == EngineTypePodman {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}
	return firstAvailable(preferredType, candidates)
}

// AutoDetectEngine returns whichever engine is available, preferring Docker.
func AutoDetectEngine(opts ...BaseCLIEngineOption) (Engine, error) {
	return NewEngine(EngineTypeDocker, opts...)
}

func firstAvailable(preferred EngineType, candidates []Engine) (Engine, error) {
	tried := make([]string, 0, len(candidates))
	for _, e := range candidates {
		if e.Available() {
			return e, nil
		}
		tried = append(tried, e.Name())
	}
	return nil, &EngineNotAvailableError{
		Engine: preferred,
		Reason: "none of " + strings.Join(tried, ", ") + " is installed and running",
	}
}
