// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a node runtime resolution:
//   - CUE config parsing and schema validation
//   - knob lookups across layered sources
//   - glibc compatibility cache hits under contention
//   - host and container resolution end to end
//
// To generate a PGO profile, run:
//
//	go test ./internal/benchmark -run '^$' -bench . -cpuprofile default.pgo
package benchmark
