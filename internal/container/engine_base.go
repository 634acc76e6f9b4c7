// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strings"
)

// exitCodeEngineFailure is what docker and podman exec return when the engine
// itself failed rather than the command in the container.
const exitCodeEngineFailure = 125

var (
	// ErrInvalidContainerID is the sentinel error wrapped by InvalidContainerIDError.
	ErrInvalidContainerID = errors.New("invalid container id")

	containerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
)

type (
	// ContainerID is a container name or ID as accepted by `<engine> exec`.
	ContainerID string

	// InvalidContainerIDError is returned when a ContainerID is empty or malformed.
	InvalidContainerIDError struct {
		Value ContainerID
	}

	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine holds the CLI plumbing shared by Docker and Podman. Both
	// engines embed it and only differ in detection and version queries.
	BaseCLIEngine struct {
		name        string
		binaryPath  string
		execCommand ExecCommandFunc
	}
)

// String returns the string representation of the ContainerID.
func (id ContainerID) String() string { return string(id) }

// Validate returns nil if the id looks like a container name or ID.
func (id ContainerID) Validate() error {
	if !containerIDPattern.MatchString(string(id)) {
		return &InvalidContainerIDError{Value: id}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidContainerIDError) Error() string {
	return fmt.Sprintf("invalid container id %q", e.Value)
}

// Unwrap returns ErrInvalidContainerID for errors.Is.
func (e *InvalidContainerIDError) Unwrap() error { return ErrInvalidContainerID }

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithBinaryPath overrides the engine binary found on PATH.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.binaryPath = path
	}
}

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// ExecArgs constructs arguments for an exec command.
//
// Generated command: <binary> exec [options] <container> <command...>
func (e *BaseCLIEngine) ExecArgs(containerID ContainerID, command []string, opts ExecOptions) []string {
	args := []string{"exec"}

	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}
	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}

	keys := make([]string, 0, len(opts.Env))
	for k := range opts.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+opts.Env[k])
	}

	args = append(args, string(containerID))
	return append(args, command...)
}

// InspectRunningArgs constructs arguments that print a container's running state.
func (e *BaseCLIEngine) InspectRunningArgs(containerID ContainerID) []string {
	return []string{"inspect", "--format", "{{.State.Running}}", string(containerID)}
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %s: %w", e.binaryPath, args, strings.TrimSpace(stderr.String()), err)
	}
	return out.String(), nil
}

// Running reports whether the container exists and is running.
func (e *BaseCLIEngine) Running(ctx context.Context, containerID ContainerID) (bool, error) {
	if err := containerID.Validate(); err != nil {
		return false, err
	}
	out, err := e.RunCommandWithOutput(ctx, e.InspectRunningArgs(containerID)...)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}

// Exec runs a command in a running container. A non-zero exit code from the
// command is reported in the result; an error is returned only when the engine
// could not run the command at all.
func (e *BaseCLIEngine) Exec(ctx context.Context, containerID ContainerID, command []string, opts ExecOptions) (*ExecResult, error) {
	if err := containerID.Validate(); err != nil {
		return nil, err
	}
	if len(command) == 0 {
		return nil, errors.New("exec: empty command")
	}
	if e.binaryPath == "" {
		return nil, &EngineNotAvailableError{Engine: EngineType(e.name), Reason: "binary not found on PATH"}
	}

	cmd := e.CreateCommand(ctx, e.ExecArgs(containerID, command, opts)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	result := &ExecResult{ContainerID: containerID, Output: out.String()}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s exec in %s: %w", e.name, containerID, ctxErr)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("%s exec in %s: %w", e.name, containerID, err)
	}
	if exitErr.ExitCode() == exitCodeEngineFailure {
		return nil, fmt.Errorf("%s exec in %s failed: %s: %w", e.name, containerID, strings.TrimSpace(result.Output), err)
	}
	result.ExitCode = exitErr.ExitCode()
	return result, nil
}
