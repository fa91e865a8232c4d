package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapexpose/internal/cli/output"
	"github.com/leapstack-labs/leapexpose/internal/pipeline"
	"github.com/leapstack-labs/leapexpose/pkg/core"
	"github.com/leapstack-labs/leapexpose/pkg/exposure"
	"github.com/spf13/cobra"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate the dbt exposures manifest",
		Long: `Discover Tableau published data sources and workbooks in the configured
projects (and their sub-projects), reconcile their upstream tables with the
warehouse dependency view, and write a dbt exposures manifest.

Without a warehouse configured, each item's own upstream tables become its
dependencies. The manifest is only written when the whole run succeeds.`,
		Example: `  # Write exposures/exposures.yml using leapexpose.yaml and .env
  leapexpose generate

  # Join against Snowflake and keep the flattened rows for inspection
  leapexpose generate --warehouse snowflake --dump-rows rows.csv

  # Print the manifest instead of writing it
  leapexpose generate --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, dryRun)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Manifest path (default: exposures/exposures.yml)")
	cmd.Flags().String("format", "", "Manifest format (yaml|json)")
	cmd.Flags().String("dump-rows", "", "Also write flattened rows to this .csv or .db file")
	cmd.Flags().String("warehouse", "", "Warehouse type to join against (snowflake|postgres|duckdb)")
	cmd.Flags().Int("scope-passes", 0, "Maximum sub-project depth below each seed project")
	cmd.Flags().String("base-url", "", "Base URL for exposure links")
	cmd.Flags().StringSlice("datasource-project", nil, "Seed project for published data sources (repeatable)")
	cmd.Flags().StringSlice("workbook-project", nil, "Seed project for workbooks (repeatable)")
	cmd.Flags().StringSlice("ref-database", nil, "Database rendered as ref() (repeatable)")
	cmd.Flags().String("source-database", "", "Database rendered as source()")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the manifest to stdout instead of writing it")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("warehouse", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"snowflake", "postgres", "duckdb"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// generateSummary is the machine-readable run summary.
type generateSummary struct {
	RunID        string         `json:"run_id"`
	Mode         string         `json:"mode"`
	Output       string         `json:"output,omitempty"`
	Exposures    int            `json:"exposures"`
	Rows         int            `json:"rows"`
	Duplicates   int            `json:"duplicates"`
	Edges        int            `json:"edges"`
	Dropped      map[string]int `json:"dropped_references"`
	Projects     map[string]int `json:"projects"`
	Skipped      int            `json:"skipped_dependencies"`
	QueryErrors  int            `json:"query_errors"`
	DurationSecs float64        `json:"duration_seconds"`
}

func runGenerate(cmd *cobra.Command, dryRun bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}
	format, err := exposure.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	src, closeSource, err := openWarehouse(ctx, cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer closeSource()

	var deps pipeline.DependencySource
	if src != nil {
		deps = src
	}

	eng, err := pipeline.New(newTableauClient(cfg, cmdCtx.Logger), deps, pipeline.Config{
		DatasourceProjects: cfg.DatasourceProjects,
		WorkbookProjects:   cfg.WorkbookProjects,
		ScopePasses:        cfg.ScopePasses,
		BaseURL:            cfg.BaseURL,
		Classifier:         cfg.Classifier(),
		DumpPath:           cfg.DumpRows,
		Logger:             cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	res, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	if dryRun {
		return exposure.Encode(r.Writer(), res.Manifest, format)
	}

	if err := exposure.WriteFile(cfg.Output, res.Manifest, format); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	cmdCtx.Logger.Info("wrote manifest", "path", cfg.Output, "exposures", len(res.Manifest.Exposures))

	return renderSummary(r, summarize(res, cfg.Output))
}

func summarize(res *pipeline.Result, path string) generateSummary {
	s := generateSummary{
		RunID:        res.RunID,
		Mode:         string(res.Mode),
		Output:       path,
		Exposures:    len(res.Manifest.Exposures),
		Rows:         res.Rows,
		Duplicates:   res.Duplicates,
		Edges:        res.Edges,
		Dropped:      make(map[string]int),
		Projects:     make(map[string]int),
		Skipped:      res.SkippedDependencies,
		QueryErrors:  res.QueryErrs,
		DurationSecs: res.Duration.Round(time.Millisecond).Seconds(),
	}
	for _, kind := range core.AllKinds() {
		s.Dropped[kind.ExposureType()] = res.Flatten[kind].Dropped
		s.Projects[kind.ExposureType()] = len(res.Scopes[kind])
	}
	return s
}

func renderSummary(r *output.Renderer, s generateSummary) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(s)
	case output.ModeMarkdown:
		r.Header(1, "Exposures generated")
		r.KeyValue("Output", s.Output)
		r.KeyValue("Exposures", s.Exposures)
		r.KeyValue("Mode", s.Mode)
		r.KeyValue("Rows", s.Rows)
		r.KeyValue("Run", s.RunID)
		return nil
	default:
		r.Success(fmt.Sprintf("Wrote %d exposures to %s", s.Exposures, s.Output))
		for _, kind := range core.AllKinds() {
			detail := fmt.Sprintf("(%d projects, %d dropped references)",
				s.Projects[kind.ExposureType()], s.Dropped[kind.ExposureType()])
			status := "success"
			if s.Projects[kind.ExposureType()] == 0 {
				status = "warning"
			}
			r.StatusLine(output.Title(kind.Label())+"s", status, detail)
		}
		if s.Skipped > 0 {
			r.Warning(fmt.Sprintf("%d dependencies could not be formatted", s.Skipped))
		}
		r.Println(r.Muted(fmt.Sprintf("mode %s, %d rows, run %s", s.Mode, s.Rows, s.RunID)))
		return nil
	}
}
