// Package postgres reads dependency edges from a PostgreSQL database.
//
// Import this package with a blank identifier to register the source:
//
//	import _ "github.com/leapstack-labs/leapexpose/internal/warehouse/postgres"
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/leapexpose/internal/warehouse"
)

func init() {
	warehouse.Register("postgres", func(logger *slog.Logger) warehouse.Source { return New(logger) })
}

// Source implements warehouse.Source for PostgreSQL.
type Source struct {
	warehouse.BaseSQLSource
}

// New creates a PostgreSQL source. If logger is nil, a discard logger is used.
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
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (s *Source) Connect(ctx context.Context, cfg warehouse.Config) error {
	dsn := buildPostgresDSN(cfg)

	s.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg warehouse.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if cfg.Schema != "" {
		dsn += fmt.Sprintf(" search_path=%s", cfg.Schema)
	}

	return dsn
}

// Ensure Source implements warehouse.Source interface
var _ warehouse.Source = (*Source)(nil)
