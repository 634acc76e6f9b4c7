// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// transientMarkers are engine error fragments that usually clear up on retry.
var transientMarkers = []string{
	"Cannot connect to the Docker daemon",
	"connection refused",
	"connection reset by peer",
	"i/o timeout",
	"OCI runtime exec failed",
	"ping_group_range",
}

// IsTransientError reports whether an exec error may succeed on retry. Context
// cancellation and deadlines are never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrInvalidContainerID) || errors.Is(err, ErrEngineNotAvailable) {
		return false
	}

	msg := err.Error()
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}

	// Exit code 125 without a recognizable cause is an engine-side failure
	// (storage, cgroups) that is often gone a moment later.
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == exitCodeEngineFailure &&
		!strings.Contains(msg, "is not running") && !strings.Contains(msg, "No such container")
}
