// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// DefaultContainerProbeTimeout bounds a single `node --version` probe in a container.
const DefaultContainerProbeTimeout = 10 * time.Second

type (
	// ExecResult is the outcome of a command run inside a container.
	ExecResult struct {
		ExitCode int
		Output   string
	}

	// ContainerExecutor runs a command inside a running container.
	ContainerExecutor interface {
		Exec(ctx context.Context, containerID string, command []string) (ExecResult, error)
	}

	probeResult struct {
		ok      bool
		version string
		detail  string
	}
)

// probeContainer runs `<path> --version` in the container. A result is usable
// only when the command exits zero with non-empty output.
func (o *Orchestrator) probeContainer(ctx context.Context, containerID, path string) probeResult {
	ctx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()

	res, err := o.executor.Exec(ctx, containerID, []string{path, "--version"})
	if err != nil {
		if ctx.Err() != nil {
			return probeResult{detail: fmt.Sprintf("timed out after %s", o.probeTimeout)}
		}
		return probeResult{detail: err.Error()}
	}
	out := strings.TrimSpace(res.Output)
	if res.ExitCode != 0 {
		return probeResult{detail: fmt.Sprintf("exit code %d: %s", res.ExitCode, out)}
	}
	if out == "" {
		return probeResult{detail: "empty version output"}
	}
	return probeResult{ok: true, version: canonicalVersion(out)}
}

// canonicalVersion returns the semver form of `node --version` output, or "" when
// the first line is not a version.
func canonicalVersion(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "v") {
		line = "v" + line
	}
	if !semver.IsValid(line) {
		return ""
	}
	return semver.Canonical(line)
}
