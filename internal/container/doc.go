// SPDX-License-Identifier: MPL-2.0

// Package container runs commands inside an already-started job container through
// the Docker or Podman CLI and maps agent host paths to their location inside the
// container.
//
// The package never starts or stops containers; the job's container lifecycle is
// owned elsewhere. It only needs `<engine> exec` to probe the node runtime mounted
// into the container.
package container
