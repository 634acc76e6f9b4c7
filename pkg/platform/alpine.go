// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"bufio"
	"bytes"
	"os"
	"runtime"
	"strings"
	"sync"
)

const (
	alpineReleaseFile = "/etc/alpine-release"
	osReleaseFile     = "/etc/os-release"
)

// alpineOnce caches the Alpine detection result for the lifetime of the process.
// The host distribution cannot change while the agent runs.
var alpineOnce = sync.OnceValue(func() bool {
	if runtime.GOOS != Linux {
		return false
	}
	return detectAlpineFrom(statFile, os.ReadFile)
})

// IsAlpine reports whether the host is Alpine Linux. The result is cached.
func IsAlpine() bool {
	return alpineOnce()
}

// detectAlpineFrom performs Alpine detection using the provided lookup functions.
// Accepting statFile and readFile as parameters allows tests to inject custom
// behavior without touching the real filesystem.
func detectAlpineFrom(statFile func(string) error, readFile func(string) ([]byte, error)) bool {
	if err := statFile(alpineReleaseFile); err == nil {
		return true
	}

	data, err := readFile(osReleaseFile)
	if err != nil {
		return false
	}
	return osReleaseID(data) == "alpine"
}

// osReleaseID extracts the ID field from os-release content.
func osReleaseID(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		value, ok := strings.CutPrefix(line, "ID=")
		if !ok {
			continue
		}
		return strings.ToLower(strings.Trim(value, `"'`))
	}
	return ""
}

// statFile checks for the existence of a file at the given path.
func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
