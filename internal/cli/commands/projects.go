package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapexpose/internal/cli/output"
	"github.com/leapstack-labs/leapexpose/pkg/core"
	"github.com/leapstack-labs/leapexpose/pkg/scope"
	"github.com/spf13/cobra"
)

// NewProjectsCommand creates the projects command.
func NewProjectsCommand() *cobra.Command {
	var inScope bool

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List Tableau projects and which ones are in scope",
		Long: `List every project on the site with its parent, marking the projects that
generate would query for published data sources and for workbooks.`,
		Example: `  # Show all projects
  leapexpose projects

  # Only the projects generate would query, as JSON
  leapexpose projects --in-scope --display json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProjects(cmd, inScope)
		},
	}

	cmd.Flags().BoolVar(&inScope, "in-scope", false, "Only show projects in scope")
	return cmd
}

// projectRow is one listed project.
type projectRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Parent      string `json:"parent,omitempty"`
	Datasources bool   `json:"datasources"`
	Workbooks   bool   `json:"workbooks"`
}

func runProjects(cmd *cobra.Command, inScope bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}

	ctx := cmd.Context()
	client := newTableauClient(cfg, cmdCtx.Logger)
	if err := client.SignIn(ctx); err != nil {
		return err
	}
	defer func() {
		if err := client.SignOut(context.WithoutCancel(ctx)); err != nil {
			cmdCtx.Logger.Warn("sign out failed", slog.String("error", err.Error()))
		}
	}()

	all, err := client.Projects(ctx)
	if err != nil {
		return err
	}

	rows := projectRows(all,
		scope.Resolve(cfg.DatasourceProjects, all, cfg.ScopePasses),
		scope.Resolve(cfg.WorkbookProjects, all, cfg.ScopePasses),
		inScope)
	return renderProjects(cmdCtx.Renderer, rows)
}

// projectRows marks each scope by name membership. Scope names are not
// unique, so every scope sharing a resolved name is marked.
func projectRows(all []core.Scope, datasources, workbooks []string, onlyInScope bool) []projectRow {
	names := make(map[string]string, len(all))
	for _, s := range all {
		names[s.ID] = s.Name
	}
	ds := toSet(datasources)
	wb := toSet(workbooks)

	rows := make([]projectRow, 0, len(all))
	for _, s := range all {
		row := projectRow{
			ID:          s.ID,
			Name:        s.Name,
			Parent:      names[s.ParentID],
			Datasources: ds[s.Name],
			Workbooks:   wb[s.Name],
		}
		if onlyInScope && !row.Datasources && !row.Workbooks {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func renderProjects(r *output.Renderer, rows []projectRow) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(rows)
	}

	mark := func(b bool) string {
		if b {
			return "✓"
		}
		return ""
	}
	tableRows := make([]table.Row, 0, len(rows))
	for _, p := range rows {
		tableRows = append(tableRows, table.Row{p.ID, p.Name, p.Parent, mark(p.Datasources), mark(p.Workbooks)})
	}

	r.Header(1, fmt.Sprintf("Projects (%d)", len(rows)))
	r.Table(table.Row{"ID", "Name", "Parent", "Data sources", "Workbooks"}, tableRows)
	return nil
}
