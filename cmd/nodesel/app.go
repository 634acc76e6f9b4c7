// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nodesel/nodesel/internal/config"
	"github.com/nodesel/nodesel/internal/container"
	"github.com/nodesel/nodesel/internal/glibc"
	"github.com/nodesel/nodesel/internal/issue"
	"github.com/nodesel/nodesel/internal/knob"
	"github.com/nodesel/nodesel/pkg/platform"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer; every Cobra handler receives an App reference.
	App struct {
		Config     ConfigProvider
		Engines    EngineFactory
		HostRunner glibc.CommandRunner
		Env        knob.Source
		IsAlpine   func() bool
		stdout     io.Writer
		stderr     io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		// Engines builds the container engine used for live container probes.
		Engines EngineFactory
		// HostRunner runs host `node --version` probes.
		HostRunner glibc.CommandRunner
		// Env serves knobs from the process environment.
		Env      knob.Source
		IsAlpine func() bool
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Loaded, error)
	}

	// EngineFactory returns a container engine, preferring the given type.
	EngineFactory func(preferred container.EngineType) (container.Engine, error)

	// globalFlags holds the persistent root flags.
	globalFlags struct {
		configPath string
		externals  string
		verbose    bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Engines == nil {
		deps.Engines = func(preferred container.EngineType) (container.Engine, error) {
			return container.NewEngine(preferred)
		}
	}
	if deps.HostRunner == nil {
		deps.HostRunner = glibc.ExecRunner{}
	}
	if deps.Env == nil {
		deps.Env = knob.NewEnvSource()
	}
	if deps.IsAlpine == nil {
		deps.IsAlpine = platform.IsAlpine
	}

	return &App{
		Config:     deps.Config,
		Engines:    deps.Engines,
		HostRunner: deps.HostRunner,
		Env:        deps.Env,
		IsAlpine:   deps.IsAlpine,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}, nil
}

// loadConfig loads configuration and applies the --externals override.
func (a *App) loadConfig(ctx context.Context, g *globalFlags) (*config.Loaded, error) {
	loaded, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: g.configPath})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, "")
	}
	if g.externals != "" {
		abs, err := filepath.Abs(g.externals)
		if err != nil {
			return nil, fmt.Errorf("resolve --externals: %w", err)
		}
		loaded.Config.ExternalsDir = abs
	}
	return loaded, nil
}

// checkExternals reports a missing externals directory as an actionable issue.
func checkExternals(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		return nil
	}
	if err == nil {
		err = errors.New("not a directory")
	}
	return newServiceError(issue.WrapWithContext(err, "open externals directory", dir), issue.ExternalsNotFoundId, "")
}

// handleError renders ServiceError help to stderr and attaches the exit code.
func (a *App) handleError(err error, verbose bool) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(a.stderr, svcErr, "auto")
	}
	if verbose {
		fmt.Fprintln(a.stderr, ErrorStyle.Render("error: ")+formatErrorForDisplay(err, true))
	}
	return &ExitError{Code: exitCodeFor(err), Err: err}
}
