// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nodesel/nodesel/internal/resolver"
	"github.com/nodesel/nodesel/pkg/nodeversion"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "load config"},
			expected: "failed to load config",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "load config", Resource: "/etc/nodesel/config.toml"},
			expected: "failed to load config: /etc/nodesel/config.toml",
		},
		{
			name:     "operation with cause",
			err:      &ActionableError{Operation: "probe container", Cause: errors.New("exit status 125")},
			expected: "failed to probe container: exit status 125",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "resolve node runtime",
				Resource:  "Node16",
				Cause:     errors.New("no compatible node runtime"),
			},
			expected: "failed to resolve node runtime: Node16: no compatible node runtime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	err := WrapWithContext(fmt.Errorf("wrapped: %w", sentinel), "load config", "config.toml")
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the sentinel through the cause chain")
	}
	if (&ActionableError{Operation: "x"}).Unwrap() != nil {
		t.Error("Unwrap() without cause should be nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("permission denied")
	err := &ActionableError{
		Operation:   "write metrics",
		Resource:    "/var/lib/node_exporter/nodesel.prom",
		Suggestions: []string{"Check directory permissions", "Pick another --metrics-file"},
		Cause:       fmt.Errorf("open: %w", root),
	}

	short := err.Format(false)
	for _, want := range []string{"failed to write metrics", "• Check directory permissions", "• Pick another --metrics-file"} {
		if !strings.Contains(short, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, short)
		}
	}
	if strings.Contains(short, "Error chain") {
		t.Errorf("Format(false) should not include the chain:\n%s", short)
	}

	verbose := err.Format(true)
	for _, want := range []string{"Error chain:", "1. open: permission denied", "2. permission denied"} {
		if !strings.Contains(verbose, want) {
			t.Errorf("Format(true) missing %q:\n%s", want, verbose)
		}
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("probe container").
		WithResource("abc123").
		WithSuggestion("one").
		WithSuggestions("two", "three").
		Wrap(cause).
		Build()
	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if ae.Operation != "probe container" || ae.Resource != "abc123" || ae.Cause != cause {
		t.Errorf("Build() = %+v", ae)
	}
	if len(ae.Suggestions) != 3 || !ae.HasSuggestions() {
		t.Errorf("Suggestions = %v, want 3", ae.Suggestions)
	}
}

func TestWrapHelpersNil(t *testing.T) {
	t.Parallel()

	if WrapWithOperation(nil, "x") != nil {
		t.Error("WrapWithOperation(nil) should be nil")
	}
	if WrapWithContext(nil, "x", "y") != nil {
		t.Error("WrapWithContext(nil) should be nil")
	}
	if WrapResolveError(nil) != nil {
		t.Error("WrapResolveError(nil) should be nil")
	}
	if got := WrapWithOperation(errors.New("boom"), "load config").Error(); got != "failed to load config: boom" {
		t.Errorf("WrapWithOperation() message = %q", got)
	}
}

func TestWrapResolveError(t *testing.T) {
	t.Parallel()

	noCompat := &resolver.NoCompatibleVersionError{
		Handler:       "Node16",
		Mode:          resolver.ModeHost,
		Desired:       nodeversion.Node24,
		Incompatible:  []nodeversion.ID{nodeversion.Node24, nodeversion.Node20_1},
		EOLRestricted: true,
	}
	ae := WrapResolveError(fmt.Errorf("resolve: %w", noCompat))
	if ae.Resource != "Node16" {
		t.Errorf("Resource = %q, want Node16", ae.Resource)
	}
	if !slicesEqual(ae.Suggestions, noCompat.Suggestions()) {
		t.Errorf("Suggestions = %v, want %v", ae.Suggestions, noCompat.Suggestions())
	}
	if !errors.Is(ae, resolver.ErrNoCompatibleVersion) {
		t.Error("wrapped error should match ErrNoCompatibleVersion")
	}

	plain := WrapResolveError(errors.New("invalid context"))
	if plain.Resource != "" || plain.HasSuggestions() {
		t.Errorf("plain error gained context: %+v", plain)
	}
}

func slicesEqual(a, b []string) bool {
	return strings.Join(a, "\x00") == strings.Join(b, "\x00")
}
