// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// NodeExecutable returns the Node.js executable file name for goos.
func NodeExecutable(goos string) string {
	if goos == Windows {
		return "node.exe"
	}
	return "node"
}

// HostNodeExecutable returns the Node.js executable file name for the running host.
func HostNodeExecutable() string {
	return NodeExecutable(runtime.GOOS)
}
