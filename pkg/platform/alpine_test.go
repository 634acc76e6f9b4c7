// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"os"
	"testing"
)

func TestDetectAlpineFrom(t *testing.T) {
	t.Parallel()

	missing := func(string) error { return os.ErrNotExist }
	present := func(path string) error {
		if path == alpineReleaseFile {
			return nil
		}
		return os.ErrNotExist
	}
	osRelease := func(content string) func(string) ([]byte, error) {
		return func(string) ([]byte, error) { return []byte(content), nil }
	}
	unreadable := func(string) ([]byte, error) { return nil, errors.New("permission denied") }

	tests := []struct {
		name     string
		stat     func(string) error
		read     func(string) ([]byte, error)
		expected bool
	}{
		{"alpine-release present", present, unreadable, true},
		{"os-release ID alpine", missing, osRelease("NAME=\"Alpine Linux\"\nID=alpine\nVERSION_ID=3.20.1\n"), true},
		{"os-release quoted ID", missing, osRelease("ID=\"alpine\"\n"), true},
		{"debian", missing, osRelease("PRETTY_NAME=\"Debian GNU/Linux 12\"\nID=debian\n"), false},
		{"ID_LIKE is not ID", missing, osRelease("ID_LIKE=alpine\nID=postmarketos\n"), false},
		{"no release files", missing, unreadable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := detectAlpineFrom(tt.stat, tt.read); got != tt.expected {
				t.Errorf("detectAlpineFrom() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNodeExecutable(t *testing.T) {
	t.Parallel()
	if got := NodeExecutable(Windows); got != "node.exe" {
		t.Errorf("NodeExecutable(windows) = %q", got)
	}
	if got := NodeExecutable(Linux); got != "node" {
		t.Errorf("NodeExecutable(linux) = %q", got)
	}
	if got := NodeExecutable(Darwin); got != "node" {
		t.Errorf("NodeExecutable(darwin) = %q", got)
	}
}
