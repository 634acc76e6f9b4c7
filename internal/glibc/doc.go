// SPDX-License-Identifier: MPL-2.0

// Package glibc decides whether a bundled Node.js build can start against the host's
// C library.
//
// Classify recognizes the loader error a glibc-linked binary prints on a host with an
// older glibc. HostProber runs `node --version` for a runtime from the externals
// directory and classifies the result. Cache memoizes probe outcomes for the lifetime
// of the process and serializes concurrent first probes of the same runtime with
// singleflight, so a probe runs once no matter how many resolutions race for it.
package glibc
