// SPDX-License-Identifier: MPL-2.0

// Package platform provides host facts the runtime resolver depends on.
//
// It centralizes OS name constants, detects whether the agent host runs Alpine Linux
// (musl-based, so glibc builds of older Node.js runtimes cannot start there), and
// names the Node.js executable for a given OS.
package platform
