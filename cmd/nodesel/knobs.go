// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nodesel/nodesel/internal/knob"
)

// knob value origins, in precedence order
const (
	originFlag    = "flag"
	originEnv     = "env"
	originConfig  = "config"
	originDefault = "default"
)

// newKnobsCommand creates the `nodesel knobs` command.
func newKnobsCommand(app *App, g *globalFlags) *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:   "knobs",
		Short: "List the runtime selection knobs and their effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.handleError(app.runKnobs(cmd.Context(), cmd.OutOrStdout(), g, assignments), g.verbose)
		},
	}
	cmd.Flags().StringArrayVar(&assignments, "knob", nil, "set a knob as NAME=VALUE to preview its effect")
	return cmd
}

func (a *App) runKnobs(ctx context.Context, stdout io.Writer, g *globalFlags, assignments []string) error {
	cliKnobs, err := knob.ParseAssignments(assignments)
	if err != nil {
		return err
	}
	loaded, err := a.loadConfig(ctx, g)
	if err != nil {
		return err
	}

	sources := []struct {
		origin string
		src    knob.Source
	}{
		{originFlag, cliKnobs},
		{originEnv, a.Env},
		{originConfig, loaded.Config.KnobSource()},
	}
	reader := knob.NewReader(cliKnobs, a.Env, loaded.Config.KnobSource())

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers("KNOB", "VALUE", "SOURCE", "DESCRIPTION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	for _, k := range knob.Catalogue() {
		origin := originDefault
		for _, s := range sources {
			if _, ok := s.src.Lookup(k.Name); ok {
				origin = s.origin
				break
			}
		}
		t.Row(k.Name, reader.GetFlag(k.Name), origin, k.Description)
	}

	_, err = fmt.Fprintln(stdout, t.Render())
	return err
}
