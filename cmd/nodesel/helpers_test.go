// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nodesel/nodesel/internal/config"
	"github.com/nodesel/nodesel/internal/container"
	"github.com/nodesel/nodesel/internal/knob"
)

const glibcFailure = "node: /lib64/libc.so.6: version `GLIBC_2.28' not found (required by node)"

type (
	stubConfigProvider struct {
		cfg  *config.Config
		path string
		err  error
	}

	// scriptedRunner answers `node --version` by binary path. Paths containing a
	// key get its output; everything else reports a healthy runtime.
	scriptedRunner map[string]string

	stubEngine struct {
		output   string
		exitCode int
	}

	testHarness struct {
		app    *App
		stdout bytes.Buffer
		stderr bytes.Buffer
	}
)

func (p stubConfigProvider) Load(context.Context, config.LoadOptions) (*config.Loaded, error) {
	if p.err != nil {
		return nil, p.err
	}
	cfg := *p.cfg
	return &config.Loaded{Config: &cfg, Path: p.path}, nil
}

func (r scriptedRunner) Run(_ context.Context, name string, _ ...string) (string, error) {
	for key, out := range r {
		if strings.Contains(name, string(filepath.Separator)+key+string(filepath.Separator)) {
			return out, nil
		}
	}
	return "v20.19.0", nil
}

func (e *stubEngine) Name() string { return "docker" }

func (e *stubEngine) Available() bool { return true }

func (e *stubEngine) Version(context.Context) (string, error) { return "27.0.0", nil }

func (e *stubEngine) Running(context.Context, container.ContainerID) (bool, error) {
	return true, nil
}

func (e *stubEngine) Exec(_ context.Context, id container.ContainerID, _ []string, _ container.ExecOptions) (*container.ExecResult, error) {
	return &container.ExecResult{ContainerID: id, ExitCode: e.exitCode, Output: e.output}, nil
}

func newHarness(t *testing.T, externals string, runner scriptedRunner, env knob.MapSource) *testHarness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ExternalsDir = externals
	return newHarnessWithConfig(t, cfg, runner, env)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config, runner scriptedRunner, env knob.MapSource) *testHarness {
	t.Helper()

	h := &testHarness{}
	if env == nil {
		env = knob.MapSource{}
	}
	app, err := NewApp(Dependencies{
		Config:     stubConfigProvider{cfg: cfg},
		Engines:    func(container.EngineType) (container.Engine, error) { return &stubEngine{output: "v20.19.0"}, nil },
		HostRunner: runner,
		Env:        env,
		IsAlpine:   func() bool { return false },
		Stdout:     &h.stdout,
		Stderr:     &h.stderr,
	})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	h.app = app
	return h
}

// run executes the root command with args.
func (h *testHarness) run(t *testing.T, args ...string) error {
	t.Helper()

	root := NewRootCommand(h.app)
	root.SetArgs(args)
	root.SetOut(&h.stdout)
	root.SetErr(&h.stderr)
	return root.ExecuteContext(t.Context())
}
