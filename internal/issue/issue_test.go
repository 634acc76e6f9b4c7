// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nodesel/nodesel/internal/container"
	"github.com/nodesel/nodesel/internal/resolver"
)

// render is package state, so these tests do not run in parallel.

func stubRender(t *testing.T) {
	t.Helper()
	original := render
	t.Cleanup(func() { render = original })
	render = func(in string, _ string) (string, error) {
		return in, nil
	}
}

func TestValuesOrderedAndComplete(t *testing.T) {
	values := Values()
	if len(values) != len(issues) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), len(issues))
	}
	for i, v := range values {
		if v.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, v.Id(), i+1)
		}
		if Get(v.Id()) != v {
			t.Errorf("Get(%d) does not return the registered issue", v.Id())
		}
		if strings.TrimSpace(string(v.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no content", v.Id())
		}
	}
	if Get(Id(999)) != nil {
		t.Error("Get(unknown) should be nil")
	}
}

func TestLinksAreCopies(t *testing.T) {
	i := Get(NoCompatibleRuntimeId)
	links := i.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links")
	}
	links[0] = "changed"
	if i.ExtLinks()[0] == "changed" {
		t.Error("ExtLinks() should return a copy")
	}
	if i.DocLinks() != nil {
		t.Errorf("DocLinks() = %v, want none", i.DocLinks())
	}
}

func TestRender(t *testing.T) {
	stubRender(t)

	withLinks, err := Get(EOLRuntimeRestrictedId).Render("")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(withLinks, "## See also") || !strings.Contains(withLinks, "nodejs.org") {
		t.Errorf("Render() missing links section:\n%s", withLinks)
	}

	noLinks, err := Get(ConfigLoadFailedId).Render("")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(noLinks, "See also") {
		t.Errorf("Render() added an empty links section:\n%s", noLinks)
	}
}

func TestRenderGlamour(t *testing.T) {
	for _, v := range Values() {
		out, err := v.Render("notty")
		if err != nil {
			t.Errorf("issue %d failed to render: %v", v.Id(), err)
		}
		if out == "" {
			t.Errorf("issue %d rendered to empty string", v.Id())
		}
	}
}

func TestForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Id
	}{
		{name: "nil", err: nil},
		{name: "unrelated", err: errors.New("boom")},
		{
			name: "eol restricted",
			err:  fmt.Errorf("x: %w", &resolver.NoCompatibleVersionError{Handler: "Node10", EOLRestricted: true}),
			want: EOLRuntimeRestrictedId,
		},
		{
			name: "no compatible",
			err:  &resolver.NoCompatibleVersionError{Handler: "Node24", Exhausted: true},
			want: NoCompatibleRuntimeId,
		},
		{
			name: "engine missing",
			err:  &container.EngineNotAvailableError{Engine: container.EngineTypeDocker, Reason: "not installed"},
			want: ContainerEngineNotFoundId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForError(tt.err)
			if tt.want == 0 {
				if got != nil {
					t.Errorf("ForError() = issue %d, want nil", got.Id())
				}
				return
			}
			if got == nil || got.Id() != tt.want {
				t.Errorf("ForError() = %v, want issue %d", got, tt.want)
			}
		})
	}
}
