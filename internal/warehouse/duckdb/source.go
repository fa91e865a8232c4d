// Package duckdb reads dependency edges from a DuckDB database, typically
// one built from an exported copy of the warehouse dependency view.
//
// Import this package with a blank identifier to register the source:
//
//	import _ "github.com/leapstack-labs/leapexpose/internal/warehouse/duckdb"
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapexpose/internal/warehouse"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	warehouse.Register("duckdb", func(logger *slog.Logger) warehouse.Source { return New(logger) })
}

// Source implements warehouse.Source for DuckDB.
type Source struct {
	warehouse.BaseSQLSource
}

// New creates a DuckDB source. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{
		BaseSQLSource: warehouse.BaseSQLSource{Logger: logger},
	}
}

// Name returns the registered source name.
func (s *Source) Name() string {
	return "duckdb"
}

// Connect opens the database and maps any configured files to views.
// Use ":memory:" (the default) with params.files to query exports directly.
func (s *Source) Connect(ctx context.Context, cfg warehouse.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, stmt := range setupStatements(params) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to prepare duckdb session: %w", err)
		}
	}

	s.DB = db
	s.Cfg = cfg
	s.Logger.Debug("connected to duckdb", slog.String("path", path), slog.Int("views", len(params.Files)))
	return nil
}

// setupStatements renders settings and file views in a stable order.
func setupStatements(p *Params) []string {
	var stmts []string

	for _, key := range sortedKeys(p.Settings) {
		stmts = append(stmts, fmt.Sprintf("SET %s = '%s'", key, escape(p.Settings[key])))
	}

	for _, view := range sortedKeys(p.Files) {
		file := p.Files[view]
		if abs, err := filepath.Abs(file); err == nil {
			file = abs
		}
		reader := "read_csv_auto('%s', header=true)"
		if strings.EqualFold(filepath.Ext(file), ".parquet") {
			reader = "read_parquet('%s')"
		}
		stmts = append(stmts, fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM "+reader, view, escape(file)))
	}
	return stmts
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Ensure Source implements warehouse.Source interface
var _ warehouse.Source = (*Source)(nil)
