// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nodesel/nodesel/internal/resolver"
)

func TestMetricsEmit(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	ctx := t.Context()

	m.Emit(ctx, resolver.EventNodeVersionSelection, map[string]string{
		"selected_version": "node20_1",
		"strategy":         "node20_1",
		"environment":      "host",
		"has_warning":      "true",
	})
	m.Emit(ctx, resolver.EventNodeVersionSelection, map[string]string{
		"selected_version": "node20_1",
		"strategy":         "node20_1",
		"environment":      "host",
		"has_warning":      "false",
	})
	m.Emit(ctx, resolver.EventNodeVersionFailure, map[string]string{
		"handler":     "Node16",
		"environment": "container",
	})
	m.Emit(ctx, "SomethingElse", map[string]string{"handler": "x"})

	if got := testutil.ToFloat64(m.resolutions.WithLabelValues("node20_1", "node20_1", "host")); got != 2 {
		t.Errorf("resolutions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.warnings.WithLabelValues("node20_1")); got != 1 {
		t.Errorf("warnings = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("Node16", "container")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.failures); got != 1 {
		t.Errorf("failure series = %d, want 1", got)
	}
}

func TestMetricsWriteTextfile(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.Emit(t.Context(), resolver.EventNodeVersionSelection, map[string]string{
		"selected_version": "node24",
		"strategy":         "node24",
		"environment":      "container",
	})

	path := filepath.Join(t.TempDir(), "nodesel.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `nodesel_resolutions_total{environment="container",strategy="node24",version="node24"} 1`
	if !strings.Contains(string(data), want) {
		t.Errorf("textfile missing %q:\n%s", want, data)
	}
}
