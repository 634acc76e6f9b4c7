// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nodesel/nodesel/internal/config"
)

const (
	dumpFormatCUE  = "cue"
	dumpFormatTOML = "toml"
)

// newConfigCommand creates the `nodesel config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, g *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nodesel configuration",
		Long: `Manage nodesel configuration.

Configuration is read from the first of:
  - the file named by --config
  - $XDG_CONFIG_HOME/nodesel/config.cue (os.UserConfigDir elsewhere)
  - ./config.cue

Every key can be overridden with a NODESEL_ environment variable, e.g.
NODESEL_PROBE_TIMEOUT=5s or NODESEL_CONTAINER_ENGINE=podman.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.handleError(app.showConfig(cmd.Context(), cmd.OutOrStdout(), g), g.verbose)
		},
	})

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.handleError(app.dumpConfig(cmd.Context(), cmd.OutOrStdout(), g, format), g.verbose)
		},
	}
	dumpCmd.Flags().StringVar(&format, "format", dumpFormatCUE, "output format: cue or toml")
	cfgCmd.AddCommand(dumpCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfigPath(cmd.OutOrStdout(), g)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig(config.LoadOptions{ConfigFilePath: g.configPath})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, w io.Writer, g *globalFlags) error {
	loaded, err := a.loadConfig(ctx, g)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if loaded.Path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), loaded.Path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("externals_dir"), valueStyle.Render(cfg.ExternalsDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("container_engine"), valueStyle.Render(cfg.ContainerEngine.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("probe_timeout"), valueStyle.Render(cfg.ProbeTimeout.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("log_level"), valueStyle.Render(cfg.LogLevel.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("knobs"))
	knobs := cfg.KnobSource()
	if len(knobs) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, name := range slices.Sorted(maps.Keys(knobs)) {
		fmt.Fprintf(w, "  %s: %s\n", name, valueStyle.Render(knobs[name]))
	}

	fmt.Fprintln(w)
	mount := cfg.Mount()
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("container.externals_mount"))
	fmt.Fprintf(w, "  host: %s\n", valueStyle.Render(mount.HostPath.String()))
	fmt.Fprintf(w, "  container: %s\n", valueStyle.Render(mount.ContainerPath.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("telemetry"))
	fmt.Fprintf(w, "  otlp_endpoint: %s\n", valueOrNone(cfg.Telemetry.OTLPEndpoint))
	fmt.Fprintf(w, "  sample_rate: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Telemetry.SampleRate)))
	fmt.Fprintf(w, "  metrics_file: %s\n", valueOrNone(cfg.Telemetry.MetricsFile))

	return nil
}

func (a *App) dumpConfig(ctx context.Context, w io.Writer, g *globalFlags, format string) error {
	loaded, err := a.loadConfig(ctx, g)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case dumpFormatCUE:
		_, err = io.WriteString(w, config.GenerateCUE(loaded.Config))
		return err
	case dumpFormatTOML:
		out, err := config.DumpTOML(loaded.Config)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("invalid --format %q (valid: %s, %s)", format, dumpFormatCUE, dumpFormatTOML)
	}
}

func showConfigPath(w io.Writer, g *globalFlags) error {
	path, found, err := config.FilePath(config.LoadOptions{ConfigFilePath: g.configPath})
	if err != nil {
		return err
	}
	status := SubtitleStyle.Render("(not created)")
	if found {
		status = SuccessStyle.Render("(exists)")
	}
	fmt.Fprintf(w, "Config file: %s %s\n", path, status)
	return nil
}

func valueOrNone(v string) string {
	if v == "" {
		return SubtitleStyle.Render("(none)")
	}
	return SuccessStyle.Render(v)
}
