// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "nodesel",
		Short: "Select the node runtime a CI step runs on",
		Long: TitleStyle.Render("nodesel") + SubtitleStyle.Render(" - node runtime selection for CI agents") + `

nodesel decides which bundled node runtime (node24, node20_1, node16, ...)
runs a JavaScript action, on the agent host or inside a job container.
It honours the handler's declared runtime, the agent's feature knobs,
glibc compatibility of the host and end-of-life policy.

` + SubtitleStyle.Render("Examples:") + `
  nodesel resolve --handler Node20_1     Resolve for a Node20_1 handler
  nodesel resolve --container            Resolve for a container step
  nodesel probe                          Show glibc compatibility per runtime
  nodesel knobs                          List knobs and their effective values
  nodesel config show                    Show current configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log every strategy decision")
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/nodesel/config.cue)")
	rootCmd.PersistentFlags().StringVar(&g.externals, "externals", "", "agent externals directory (overrides config)")

	rootCmd.AddCommand(
		newResolveCommand(app, g),
		newProbeCommand(app, g),
		newKnobsCommand(app, g),
		newConfigCommand(app, g),
		newCompletionCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

// newVersionCommand prints the same string as --version.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the nodesel version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "nodesel "+getVersionString())
		},
	}
}

// getVersionString returns a formatted version string for display.
// Ldflags values take precedence; otherwise module build info is used.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(ExitFailure)
	}

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}
