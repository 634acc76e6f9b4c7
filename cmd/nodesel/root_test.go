// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"strings"
	"testing"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-03-02T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-03-02T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("fallback to dev when no build info", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		// Test binaries report Main.Version == "(devel)".
		Version = "dev"
		Commit = "unknown"
		BuildDate = "unknown"

		got := getVersionString()
		want := "dev (built from source)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t, t.TempDir(), nil, nil)
	root := NewRootCommand(h.app)

	for _, name := range []string{"resolve", "probe", "knobs", "config", "completion", "version"} {
		found, _, err := root.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("Find(%q) = %v, %v; want the %s command", name, found, err, name)
		}
	}
	for _, flag := range []string{"config", "externals", "verbose"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
	resolveCmd, _, _ := root.Find([]string{"resolve"})
	if f := resolveCmd.Flags().Lookup("host-os"); f == nil || !f.Hidden {
		t.Error("--host-os should exist and be hidden")
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t, t.TempDir(), nil, nil)
	if err := h.run(t, "version"); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(h.stdout.String(), "nodesel ") {
		t.Errorf("version output = %q", h.stdout.String())
	}
}

func TestCompletionCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t, t.TempDir(), nil, nil)
	if err := h.run(t, "completion", "bash"); err != nil {
		t.Fatalf("completion error = %v", err)
	}
	if !strings.Contains(h.stdout.String(), "nodesel") {
		t.Error("bash completion does not mention nodesel")
	}

	if err := h.run(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}
