// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nodesel/nodesel/internal/config"
	"github.com/nodesel/nodesel/internal/container"
	"github.com/nodesel/nodesel/internal/glibc"
	"github.com/nodesel/nodesel/internal/issue"
	"github.com/nodesel/nodesel/internal/knob"
	"github.com/nodesel/nodesel/internal/resolver"
	"github.com/nodesel/nodesel/internal/telemetry"
	"github.com/nodesel/nodesel/pkg/nodeversion"
	"github.com/nodesel/nodesel/pkg/platform"
)

const (
	outputText = "text"
	outputJSON = "json"

	alpineAuto = "auto"
)

type resolveFlags struct {
	handler     string
	customPath  string
	container   bool
	containerID string
	engine      string
	alpine      string
	knobs       []string
	output      string
	metricsFile string
	hostOS      string
}

// newResolveCommand creates the `nodesel resolve` command.
func newResolveCommand(app *App, g *globalFlags) *cobra.Command {
	f := &resolveFlags{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Select the node runtime for a task step",
		Long: `Select the node runtime a JavaScript action runs on and print its path.

The handler's declared runtime, knob overrides, glibc compatibility and
end-of-life policy are applied in priority order. With --container the
path is translated into the job container; with --container-id the
selection is also verified by running it inside that container.

` + SubtitleStyle.Render("Examples:") + `
  nodesel resolve --handler Node20_1
  nodesel resolve --handler Node16 --knob AGENT_RESTRICT_EOL_NODE_VERSIONS=true
  nodesel resolve --container --container-id 3f2a9c --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.handleError(app.runResolve(cmd.Context(), cmd.OutOrStdout(), g, f), g.verbose)
		},
	}

	cmd.Flags().StringVar(&f.handler, "handler", "", "task handler name, e.g. Node24, Node20_1, Node (empty is the legacy handler)")
	cmd.Flags().StringVar(&f.customPath, "custom-path", "", "use this interpreter instead of a bundled runtime")
	cmd.Flags().BoolVar(&f.container, "container", false, "resolve for a step running in a job container")
	cmd.Flags().StringVar(&f.containerID, "container-id", "", "running job container to verify the selection in (implies --container)")
	cmd.Flags().StringVar(&f.engine, "engine", "", "container engine for --container-id: docker or podman (default from config)")
	cmd.Flags().StringVar(&f.alpine, "alpine", alpineAuto, "treat the host as Alpine: auto, true or false")
	cmd.Flags().StringArrayVar(&f.knobs, "knob", nil, "set a knob as NAME=VALUE (repeatable, overrides environment and config)")
	cmd.Flags().StringVarP(&f.output, "output", "o", outputText, "output format: text or json")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here (overrides config)")
	cmd.Flags().StringVar(&f.hostOS, "host-os", "", "host operating system (GOOS) to resolve for")
	_ = cmd.Flags().MarkHidden("host-os")

	_ = cmd.RegisterFlagCompletionFunc("handler", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(nodeversion.All()))
		for _, id := range nodeversion.All() {
			names = append(names, id.HandlerName())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions([]string{outputText, outputJSON}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (a *App) runResolve(ctx context.Context, stdout io.Writer, g *globalFlags, f *resolveFlags) error {
	if f.output != outputText && f.output != outputJSON {
		return fmt.Errorf("invalid --output %q (valid: %s, %s)", f.output, outputText, outputJSON)
	}
	isAlpine, err := a.alpine(f.alpine)
	if err != nil {
		return err
	}
	affinity, err := nodeversion.ParseHandler(f.handler)
	if err != nil {
		return newServiceError(err, issue.InvalidHandlerId, "")
	}
	cliKnobs, err := knob.ParseAssignments(f.knobs)
	if err != nil {
		return err
	}

	loaded, err := a.loadConfig(ctx, g)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	if err := checkExternals(cfg.ExternalsDir); err != nil {
		return err
	}

	logger := newLogger(a.stderr, logLevel(cfg, g.verbose))
	metrics := telemetry.NewMetrics()
	metricsFile := f.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.Telemetry.MetricsFile
	}
	defer func() {
		if metricsFile == "" {
			return
		}
		if werr := metrics.WriteTextfile(metricsFile); werr != nil {
			logger.Warn("failed to write metrics textfile", "path", metricsFile, "error", werr)
		}
	}()

	tracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
		ServiceVersion: Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		if serr := tracing.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			logger.Warn("failed to flush traces", "error", serr)
		}
	}()

	rc := &resolver.ResolutionContext{
		Mode:               resolver.ModeHost,
		HostOS:             f.hostOS,
		HostIsAlpine:       isAlpine,
		HandlerAffinity:    affinity,
		Flags:              knob.NewReader(cliKnobs, a.Env, cfg.KnobSource()),
		CustomOverridePath: f.customPath,
		ContainerID:        f.containerID,
	}

	opts := []resolver.Option{
		resolver.WithDiagnostics(resolver.NewLogDiagnostics(logger)),
		resolver.WithEmitter(telemetry.Multi{telemetry.NewLogEmitter(logger, slog.LevelDebug), metrics}),
		resolver.WithTracer(tracing.Tracer()),
		resolver.WithProbeTimeout(cfg.ProbeTimeout),
	}
	dirs := resolver.StaticDirectory(cfg.ExternalsDir)

	var orch *resolver.Orchestrator
	if f.container || f.containerID != "" {
		translator, terr := container.NewMountTranslator(cfg.Mount())
		if terr != nil {
			return newServiceError(terr, issue.ConfigLoadFailedId, "")
		}
		rc.Mode = resolver.ModeContainer
		rc.PathTranslator = translator
		orch, err = a.containerOrchestrator(dirs, cfg, f, logger, opts)
		if err != nil {
			return err
		}
	} else {
		rc.Compatibility = a.hostCompatibility(cfg, f.hostOS, logger)
		orch = resolver.NewHostOrchestrator(dirs, opts...)
	}

	res, err := orch.Resolve(ctx, rc)
	if err != nil {
		var invalid *resolver.InvalidContextError
		if errors.As(err, &invalid) {
			return err
		}
		return newServiceError(issue.WrapResolveError(err), resolveIssue(err, f.containerID != ""), "")
	}

	return writeResolved(stdout, f.output, res)
}

// resolveIssue picks the help page for a failed resolution. An exhausted chain
// with a live container usually means no bundled runtime could run in the image.
func resolveIssue(err error, probed bool) issue.Id {
	var noCompat *resolver.NoCompatibleVersionError
	if probed && errors.As(err, &noCompat) && noCompat.Exhausted {
		return issue.ContainerProbeFailedId
	}
	if catalogued := issue.ForError(err); catalogued != nil {
		return catalogued.Id()
	}
	return issue.NoCompatibleRuntimeId
}

// alpine interprets the --alpine flag.
func (a *App) alpine(value string) (bool, error) {
	switch strings.ToLower(value) {
	case alpineAuto, "":
		return a.IsAlpine(), nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --alpine %q (valid: auto, true, false)", value)
	}
}

// hostCompatibility builds the glibc cache for host resolutions.
func (a *App) hostCompatibility(cfg *config.Config, hostOS string, logger *slog.Logger) *glibc.Cache {
	exe := platform.HostNodeExecutable()
	if hostOS != "" {
		exe = platform.NodeExecutable(hostOS)
	}
	prober := glibc.NewHostProber(cfg.ExternalsDir,
		glibc.WithRunner(a.HostRunner),
		glibc.WithExecutable(exe),
		glibc.WithTimeout(cfg.ProbeTimeout),
	)
	return glibc.NewCache(prober, glibc.WithLogger(logger))
}

// containerOrchestrator returns a probing orchestrator when a container ID is
// known, and a translating host-chain orchestrator otherwise.
func (a *App) containerOrchestrator(dirs resolver.DirectoryResolver, cfg *config.Config, f *resolveFlags, logger *slog.Logger, opts []resolver.Option) (*resolver.Orchestrator, error) {
	if f.containerID == "" {
		return resolver.NewHostOrchestrator(dirs, opts...), nil
	}

	preferred := cfg.ContainerEngine
	if f.engine != "" {
		preferred = container.EngineType(f.engine)
		if err := preferred.Validate(); err != nil {
			return nil, err
		}
	}
	engine, err := a.Engines(preferred)
	if err != nil {
		return nil, newServiceError(err, issue.ContainerEngineNotFoundId, "")
	}
	executor := container.NewExecutor(engine, container.WithLogger(logger))
	return resolver.NewContainerOrchestrator(dirs, executor, opts...), nil
}

func writeResolved(w io.Writer, format string, res *resolver.ResolvedRuntime) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("path") + CmdStyle.Render(res.Path) + "\n")
	b.WriteString(labelStyle.Render("version") + SuccessStyle.Render(res.Tag) + "\n")
	b.WriteString(labelStyle.Render("strategy") + res.Strategy + "\n")
	b.WriteString(labelStyle.Render("reason") + res.Reason + "\n")
	if res.DetectedVersion != "" {
		b.WriteString(labelStyle.Render("detected") + res.DetectedVersion + "\n")
	}
	if res.Warning != "" {
		b.WriteString(labelStyle.Render("warning") + WarningStyle.Render(res.Warning) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
