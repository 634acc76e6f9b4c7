// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for nodesel.
//
// The root command wires configuration, knobs and telemetry into the
// resolver and exposes resolve, probe, knobs, config and version
// subcommands.
package cmd
