// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nodesel/nodesel/internal/knob"
	"github.com/nodesel/nodesel/pkg/nodeversion"
)

const containerRoot = "/__a/externals"

type fakeExecutor struct {
	mu      sync.Mutex
	results map[string]ExecResult
	errs    map[string]error
	block   bool
	calls   []string
}

func (f *fakeExecutor) Exec(ctx context.Context, containerID string, command []string) (ExecResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, command[0])
	f.mu.Unlock()

	if containerID != "job" || len(command) != 2 || command[1] != "--version" {
		return ExecResult{}, errors.New("unexpected exec")
	}
	if f.block {
		<-ctx.Done()
		return ExecResult{}, ctx.Err()
	}
	if err := f.errs[command[0]]; err != nil {
		return ExecResult{}, err
	}
	if res, ok := f.results[command[0]]; ok {
		return res, nil
	}
	return ExecResult{ExitCode: 127, Output: "sh: node: not found"}, nil
}

func containerPath(id nodeversion.ID) string {
	return containerRoot + "/" + id.Folder() + "/bin/node"
}

func containerContext(affinity nodeversion.ID, f FlagReader) *ResolutionContext {
	return &ResolutionContext{
		Mode:            ModeContainer,
		HostOS:          "linux",
		HandlerAffinity: affinity,
		Flags:           f,
		PathTranslator:  prefixTranslator{from: testRoot, to: containerRoot},
		ContainerID:     "job",
	}
}

func TestContainerResolveProbesSelection(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{results: map[string]ExecResult{
		containerPath(nodeversion.Node20_1): {Output: "v20.11.1\n"},
	}}
	o := NewContainerOrchestrator(StaticDirectory(testRoot), exec, WithDiagnostics(&recordingDiagnostics{}))

	got, err := o.Resolve(context.Background(), containerContext(nodeversion.Node20_1, nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Path != containerPath(nodeversion.Node20_1) {
		t.Errorf("Path = %q, want %q", got.Path, containerPath(nodeversion.Node20_1))
	}
	if got.DetectedVersion != "v20.11.1" {
		t.Errorf("DetectedVersion = %q, want v20.11.1", got.DetectedVersion)
	}
}

func TestContainerResolveFallsBackOnProbeFailure(t *testing.T) {
	t.Parallel()

	diag := &recordingDiagnostics{}
	exec := &fakeExecutor{
		results: map[string]ExecResult{
			containerPath(nodeversion.Node24):   {ExitCode: 1, Output: "node: /lib/libc.so.6: version `GLIBC_2.28' not found"},
			containerPath(nodeversion.Node20_1): {Output: "v20.11.1"},
		},
	}
	o := NewContainerOrchestrator(StaticDirectory(testRoot), exec, WithDiagnostics(diag))

	rc := containerContext(nodeversion.Node20_1, flags(knob.UseNode24, "true"))
	got, err := o.Resolve(context.Background(), rc)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Version != nodeversion.Node20_1 {
		t.Errorf("Version = %s, want node20_1", got.Version)
	}
	if len(diag.warns) != 0 {
		t.Errorf("warnings = %v, probe fallback must be silent", diag.warns)
	}
	want := []string{containerPath(nodeversion.Node24), containerPath(nodeversion.Node20_1)}
	if !slices.Equal(exec.calls, want) {
		t.Errorf("probed %v, want %v", exec.calls, want)
	}
}

func TestContainerResolveEmptyOutputFails(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{results: map[string]ExecResult{
		containerPath(nodeversion.Node16): {Output: "  \n"},
	}}
	o := NewContainerOrchestrator(StaticDirectory(testRoot), exec, WithDiagnostics(&recordingDiagnostics{}))

	_, err := o.Resolve(context.Background(), containerContext(nodeversion.Node16, nil))
	var noCompat *NoCompatibleVersionError
	if !errors.As(err, &noCompat) {
		t.Fatalf("Resolve() error = %v, want NoCompatibleVersionError", err)
	}
	if !noCompat.Exhausted || noCompat.Mode != ModeContainer {
		t.Errorf("error = %+v, want exhausted container failure", noCompat)
	}
}

func TestContainerResolveProbesEachPathOnce(t *testing.T) {
	t.Parallel()

	// Two strategies selecting the same runtime share one probe.
	first := &stubStrategy{name: "first", out: selected(nodeversion.Node20_1, "stub", "")}
	second := &stubStrategy{name: "second", out: selected(nodeversion.Node20_1, "stub", "")}
	exec := &fakeExecutor{}
	o := NewContainerOrchestrator(StaticDirectory(testRoot), exec,
		WithDiagnostics(&recordingDiagnostics{}),
		WithStrategies(first, second),
	)

	if _, err := o.Resolve(context.Background(), containerContext(nodeversion.Node20_1, nil)); err == nil {
		t.Fatal("Resolve() succeeded, want failure")
	}
	if len(exec.calls) != 1 {
		t.Errorf("probes = %d, want 1", len(exec.calls))
	}
}

func TestContainerResolveProbeTimeout(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{block: true}
	o := NewContainerOrchestrator(StaticDirectory(testRoot), exec,
		WithDiagnostics(&recordingDiagnostics{}),
		WithProbeTimeout(20*time.Millisecond),
	)

	start := time.Now()
	_, err := o.Resolve(context.Background(), containerContext(nodeversion.Node20_1, nil))
	if !errors.Is(err, ErrNoCompatibleVersion) {
		t.Fatalf("Resolve() error = %v, want ErrNoCompatibleVersion", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Resolve() took %s, probe timeout not applied", elapsed)
	}
}

func TestContainerResolveExecError(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{
		errs:    map[string]error{containerPath(nodeversion.Node24): errors.New("container is not running")},
		results: map[string]ExecResult{containerPath(nodeversion.Node20_1): {Output: "v20.11.1"}},
	}
	o := NewContainerOrchestrator(StaticDirectory(testRoot), exec, WithDiagnostics(&recordingDiagnostics{}))

	got, err := o.Resolve(context.Background(), containerContext(nodeversion.Node16, flags(knob.RestrictEOLNodeVersions, "true")))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	// The node24 EOL upgrade fails its probe; node20_1 takes over through the same upgrade rule.
	if got.Version != nodeversion.Node20_1 || got.Strategy != "node20_1" {
		t.Errorf("got %s via %s, want node20_1 via node20_1", got.Version, got.Strategy)
	}
}

func TestContainerCustomPathIsNotProbed(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	o := NewContainerOrchestrator(StaticDirectory(testRoot), exec, WithDiagnostics(&recordingDiagnostics{}))

	rc := containerContext(nodeversion.Node16, nil)
	rc.CustomOverridePath = testRoot + "/node22/bin/node"

	got, err := o.Resolve(context.Background(), rc)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Path != containerRoot+"/node22/bin/node" {
		t.Errorf("Path = %q, want translated override", got.Path)
	}
	if got.Tag != "node22" {
		t.Errorf("Tag = %q, want node22", got.Tag)
	}
	if len(exec.calls) != 0 {
		t.Errorf("custom path was probed: %v", exec.calls)
	}
}

func TestContainerChainExcludesLegacyRuntimes(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	o := NewContainerOrchestrator(StaticDirectory(testRoot), exec, WithDiagnostics(&recordingDiagnostics{}))

	_, err := o.Resolve(context.Background(), containerContext(nodeversion.Node10, nil))
	if !errors.Is(err, ErrNoCompatibleVersion) {
		t.Fatalf("Resolve() error = %v, want ErrNoCompatibleVersion", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("probed %v, no strategy should apply", exec.calls)
	}
}

func TestContainerResolveRequiresContainer(t *testing.T) {
	t.Parallel()

	o := NewContainerOrchestrator(StaticDirectory(testRoot), &fakeExecutor{})

	rc := containerContext(nodeversion.Node20_1, nil)
	rc.ContainerID = ""
	if _, err := o.Resolve(context.Background(), rc); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("missing container id: error = %v, want ErrInvalidContext", err)
	}

	if _, err := o.Resolve(context.Background(), hostContext(nodeversion.Node20_1, nil)); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("host context: error = %v, want ErrInvalidContext", err)
	}
}

func TestHostOrchestratorTranslatesContainerPaths(t *testing.T) {
	t.Parallel()

	o := NewHostOrchestrator(StaticDirectory(testRoot), WithDiagnostics(&recordingDiagnostics{}))
	rc := containerContext(nodeversion.Node20_1, nil)
	rc.HostOS = "windows"

	got, err := o.Resolve(context.Background(), rc)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	// Containers always run the Linux executable regardless of the host OS.
	if got.Path != containerPath(nodeversion.Node20_1) {
		t.Errorf("Path = %q, want %q", got.Path, containerPath(nodeversion.Node20_1))
	}
}

func TestCanonicalVersion(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"v20.11.1":        "v20.11.1",
		"v24.0.0\nextra":  "v24.0.0",
		"16.20.2":         "v16.20.2",
		"node: not found": "",
		"":                "",
	}
	for in, want := range tests {
		if got := canonicalVersion(in); got != want {
			t.Errorf("canonicalVersion(%q) = %q, want %q", in, got, want)
		}
	}
}
