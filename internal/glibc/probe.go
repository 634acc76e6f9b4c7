// SPDX-License-Identifier: MPL-2.0

package glibc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"github.com/nodesel/nodesel/pkg/nodeversion"
	"github.com/nodesel/nodesel/pkg/platform"
)

// DefaultProbeTimeout bounds a single `node --version` probe.
const DefaultProbeTimeout = 10 * time.Second

// Probe outcomes.
const (
	StatusUnknown Status = iota
	StatusCompatible
	StatusIncompatible
)

// incompatibleSignature matches the dynamic loader errors printed when a binary
// needs newer glibc symbols than the host provides, e.g.
//
//	node: /lib64/libc.so.6: version `GLIBC_2.28' not found (required by node)
var incompatibleSignature = regexp.MustCompile("GLIBC_[0-9][0-9.]*'? not found|libc\\.so\\.6: version .* not found")

type (
	// Status is the cached compatibility state of one runtime.
	Status int

	// CommandRunner executes a process and returns its combined stdout and stderr.
	CommandRunner interface {
		Run(ctx context.Context, name string, args ...string) (string, error)
	}

	// Prober determines the compatibility of one runtime.
	Prober interface {
		Probe(ctx context.Context, id nodeversion.ID) (Status, error)
	}

	// ExecRunner runs commands with os/exec.
	ExecRunner struct{}

	// HostProber probes runtimes from the agent's externals directory on the host.
	HostProber struct {
		runner        CommandRunner
		externalsRoot string
		executable    string
		timeout       time.Duration
	}

	// HostProberOption configures a HostProber.
	HostProberOption func(*HostProber)
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusCompatible:
		return "compatible"
	case StatusIncompatible:
		return "incompatible"
	default:
		return "unknown"
	}
}

// Classify inspects the output of a `node --version` run and reports whether it
// carries the incompatible C library signature. Any other output, including empty
// output, is treated as compatible: only the loader error is conclusive.
func Classify(output string) Status {
	if incompatibleSignature.MatchString(output) {
		return StatusIncompatible
	}
	return StatusCompatible
}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// WithRunner overrides the command runner. Tests use this to avoid spawning processes.
func WithRunner(r CommandRunner) HostProberOption {
	return func(p *HostProber) {
		p.runner = r
	}
}

// WithExecutable overrides the executable file name (default depends on the host OS).
func WithExecutable(name string) HostProberOption {
	return func(p *HostProber) {
		p.executable = name
	}
}

// WithTimeout overrides the per-probe timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) HostProberOption {
	return func(p *HostProber) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewHostProber creates a prober for runtimes under externalsRoot.
func NewHostProber(externalsRoot string, opts ...HostProberOption) *HostProber {
	p := &HostProber{
		runner:        ExecRunner{},
		externalsRoot: externalsRoot,
		executable:    platform.HostNodeExecutable(),
		timeout:       DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BinaryPath returns the path of the executable probed for id.
func (p *HostProber) BinaryPath(id nodeversion.ID) string {
	return filepath.Join(p.externalsRoot, id.Folder(), "bin", p.executable)
}

// Probe runs the runtime with --version. The returned error reports a probe that
// could not run at all; the status is still usable (compatible) in that case.
func (p *HostProber) Probe(ctx context.Context, id nodeversion.ID) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	path := p.BinaryPath(id)
	out, err := p.runner.Run(ctx, path, "--version")
	if Classify(out) == StatusIncompatible {
		return StatusIncompatible, nil
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return StatusCompatible, fmt.Errorf("probe %s timed out after %s: %w", path, p.timeout, err)
		}
		return StatusCompatible, fmt.Errorf("probe %s: %w", path, err)
	}
	return StatusCompatible, nil
}
