// Package pipeline runs one exposure generation pass: it resolves project
// scopes, queries BI metadata, reconciles it with warehouse lineage and
// builds the exposure manifest.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapexpose/internal/rowdump"
	"github.com/leapstack-labs/leapexpose/pkg/core"
	"github.com/leapstack-labs/leapexpose/pkg/exposure"
	"github.com/leapstack-labs/leapexpose/pkg/flatten"
	"github.com/leapstack-labs/leapexpose/pkg/lineage"
	"github.com/leapstack-labs/leapexpose/pkg/scope"
	"golang.org/x/sync/errgroup"
)

// Default project seeds.
var (
	DefaultDatasourceProjects = []string{"Developer Data Sources", "Data Engineering Prototypes"}
	DefaultWorkbookProjects   = []string{"Production", "Internal Project Review (UAT)", "Power User Prototypes", "Support", "Dev"}
)

// Mode names how dependencies were derived.
type Mode string

// Dependency modes.
const (
	ModeWarehouse Mode = "warehouse"
	ModeDirect    Mode = "direct"
)

// MetadataClient is the BI metadata service.
type MetadataClient interface {
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	Projects(ctx context.Context) ([]core.Scope, error)
	QueryContent(ctx context.Context, kind core.ContentKind, projects []string) (*core.MetadataResult, error)
}

// DependencySource supplies warehouse dependency edges.
type DependencySource interface {
	Dependencies(ctx context.Context) ([]core.DependencyEdge, error)
}

// Config holds engine configuration.
type Config struct {
	// Seeds per content kind (nil uses the defaults).
	DatasourceProjects []string
	WorkbookProjects   []string

	// ScopePasses bounds descendant expansion (0 uses scope.DefaultPasses).
	ScopePasses int

	// BaseURL prefixes content URLs (empty uses exposure.DefaultBaseURL).
	BaseURL string

	// Classifier maps databases to dependency types.
	Classifier exposure.Classifier

	// DumpPath, when set, receives the deduplicated flattened rows.
	DumpPath string

	// RunID identifies the run (empty generates one).
	RunID string

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    string
	Mode     Mode
	Manifest *exposure.Manifest

	Scopes     map[core.ContentKind][]string
	Flatten    map[core.ContentKind]flatten.Stats
	QueryErrs  int
	Rows       int
	Duplicates int
	Edges      int
	Aggregated int

	// SkippedDependencies counts references that could not be formatted.
	SkippedDependencies int

	Duration time.Duration
}

// Engine wires the metadata client, the optional dependency source and the
// pure transformation stages.
type Engine struct {
	client MetadataClient
	source DependencySource
	cfg    Config
	logger *slog.Logger
}

// New creates an engine. source may be nil, in which case each content
// item's own upstream tables are its dependencies.
func New(client MetadataClient, source DependencySource, cfg Config) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("metadata client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.DatasourceProjects == nil {
		cfg.DatasourceProjects = DefaultDatasourceProjects
	}
	if cfg.WorkbookProjects == nil {
		cfg.WorkbookProjects = DefaultWorkbookProjects
	}
	if cfg.ScopePasses <= 0 {
		cfg.ScopePasses = scope.DefaultPasses
	}
	if cfg.Classifier.SourceDatabase == "" && cfg.Classifier.RefDatabases == nil {
		cfg.Classifier = exposure.DefaultClassifier()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	return &Engine{
		client: client,
		source: source,
		cfg:    cfg,
		logger: logger.With(slog.String("run_id", cfg.RunID)),
	}, nil
}

// RunID returns the identifier of this engine's run.
func (e *Engine) RunID() string {
	return e.cfg.RunID
}

// seeds returns the configured project seeds for kind.
func (e *Engine) seeds(kind core.ContentKind) []string {
	if kind == core.KindDatasource {
		return e.cfg.DatasourceProjects
	}
	return e.cfg.WorkbookProjects
}

// Run executes the pipeline. Nothing is written except the optional row
// dump; the caller persists the manifest.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:   e.cfg.RunID,
		Mode:    ModeDirect,
		Scopes:  make(map[core.ContentKind][]string),
		Flatten: make(map[core.ContentKind]flatten.Stats),
	}
	if e.source != nil {
		res.Mode = ModeWarehouse
	}

	e.logger.Info("starting exposure generation", slog.String("mode", string(res.Mode)))

	if err := e.client.SignIn(ctx); err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	defer func() {
		if err := e.client.SignOut(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("sign out failed", slog.String("error", err.Error()))
		}
	}()

	all, err := e.client.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	e.logger.Debug("listed projects", slog.Int("count", len(all)))

	kinds := core.AllKinds()
	for _, kind := range kinds {
		res.Scopes[kind] = scope.Resolve(e.seeds(kind), all, e.cfg.ScopePasses)
		e.logger.Debug("resolved scopes",
			slog.String("kind", string(kind)),
			slog.Int("seeds", len(e.seeds(kind))),
			slog.Int("projects", len(res.Scopes[kind])))
	}

	results, err := e.query(ctx, kinds, res.Scopes)
	if err != nil {
		return nil, err
	}

	var rows []core.FlatRow
	for i, kind := range kinds {
		if results[i] == nil {
			continue
		}
		res.QueryErrs += len(results[i].Errors)
		flat, stats := flatten.Flatten(results[i])
		res.Flatten[kind] = stats
		if stats.Dropped > 0 {
			e.logger.Debug("dropped malformed table references",
				slog.String("kind", string(kind)),
				slog.Int("dropped", stats.Dropped))
		}
		rows = append(rows, flat...)
	}

	deduped := flatten.Dedupe(rows)
	res.Rows = len(deduped)
	res.Duplicates = len(rows) - len(deduped)

	if e.cfg.DumpPath != "" {
		if err := rowdump.Write(ctx, e.cfg.DumpPath, e.cfg.RunID, deduped); err != nil {
			return nil, fmt.Errorf("failed to dump rows: %w", err)
		}
		e.logger.Info("dumped flattened rows", slog.String("path", e.cfg.DumpPath), slog.Int("rows", len(deduped)))
	}

	var aggregated []core.AggregatedRow
	if e.source != nil {
		edges, err := e.source.Dependencies(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch warehouse dependencies: %w", err)
		}
		res.Edges = len(edges)
		aggregated = lineage.Aggregate(deduped, edges)
	} else {
		aggregated = lineage.Direct(deduped)
	}
	res.Aggregated = len(aggregated)

	acc := exposure.NewBuilder(e.cfg.BaseURL, e.cfg.Classifier).Collect(nil, aggregated)
	res.SkippedDependencies = acc.Skipped()
	res.Manifest = acc.Manifest()
	res.Duration = time.Since(start)

	e.logger.Info("exposure generation finished",
		slog.Int("exposures", acc.Len()),
		slog.Int("rows", res.Rows),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// query fetches every kind concurrently. results[i] belongs to kinds[i] and
// is nil when the kind had no projects in scope.
func (e *Engine) query(ctx context.Context, kinds []core.ContentKind, scopes map[core.ContentKind][]string) ([]*core.MetadataResult, error) {
	results := make([]*core.MetadataResult, len(kinds))
	g, gctx := errgroup.WithContext(ctx)

	for i, kind := range kinds {
		projects := scopes[kind]
		if len(projects) == 0 {
			e.logger.Warn("no projects in scope, skipping query", slog.String("kind", string(kind)))
			continue
		}
		g.Go(func() error {
			r, err := e.client.QueryContent(gctx, kind, projects)
			if err != nil {
				return fmt.Errorf("failed to query %s: %w", kind, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
