// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nodesel/nodesel/internal/glibc"
	"github.com/nodesel/nodesel/pkg/nodeversion"
	"github.com/nodesel/nodesel/pkg/platform"
)

type probeRow struct {
	id      nodeversion.ID
	path    string
	present bool
	status  string
}

// newProbeCommand creates the `nodesel probe` command.
func newProbeCommand(app *App, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Show glibc compatibility of the bundled runtimes",
		Long: `Run the glibc compatibility probe for each bundled runtime that needs one
and print a table of the results. Runtimes that are never probed are
listed as such.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.handleError(app.runProbe(cmd.Context(), cmd.OutOrStdout(), g), g.verbose)
		},
	}
}

func (a *App) runProbe(ctx context.Context, stdout io.Writer, g *globalFlags) error {
	loaded, err := a.loadConfig(ctx, g)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	if err := checkExternals(cfg.ExternalsDir); err != nil {
		return err
	}

	logger := newLogger(a.stderr, logLevel(cfg, g.verbose))
	cache := a.hostCompatibility(cfg, "", logger)

	rows := probeRows(ctx, cfg.ExternalsDir, cache)
	fmt.Fprintln(stdout, TitleStyle.Render("Runtimes in ")+CmdStyle.Render(cfg.ExternalsDir))
	fmt.Fprintln(stdout, renderProbeTable(rows))
	return nil
}

func probeRows(ctx context.Context, root string, cache *glibc.Cache) []probeRow {
	exe := platform.HostNodeExecutable()
	rows := make([]probeRow, 0, len(nodeversion.All()))
	for _, id := range nodeversion.All() {
		row := probeRow{id: id, path: filepath.Join(root, id.Folder(), "bin", exe)}
		if _, err := os.Stat(row.path); err == nil {
			row.present = true
		}
		switch {
		case !id.Probed():
			row.status = "not probed"
		case !row.present:
			row.status = "missing"
		default:
			row.status = cache.Status(ctx, id).String()
		}
		rows = append(rows, row)
	}
	return rows
}

func renderProbeTable(rows []probeRow) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers("RUNTIME", "HANDLER", "EOL", "GLIBC", "PATH").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 3 && row >= 0 && row < len(rows) {
				return tableCellStyle.Foreground(statusColor(rows[row].status))
			}
			return tableCellStyle
		})

	for _, r := range rows {
		eol := "no"
		if r.id.IsEOL() {
			eol = "yes"
		}
		t.Row(string(r.id), r.id.HandlerName(), eol, r.status, r.path)
	}
	return t.Render()
}

func statusColor(status string) lipgloss.Color {
	switch status {
	case glibc.StatusCompatible.String():
		return ColorSuccess
	case glibc.StatusIncompatible.String():
		return ColorError
	case "missing":
		return ColorWarning
	default:
		return ColorMuted
	}
}
