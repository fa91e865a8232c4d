// Package snowflake reads dependency edges from Snowflake's account usage
// views.
//
// Import this package with a blank identifier to register the source:
//
//	import _ "github.com/leapstack-labs/leapexpose/internal/warehouse/snowflake"
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapexpose/internal/warehouse"
	"github.com/snowflakedb/gosnowflake"
)

func init() {
	warehouse.Register("snowflake", func(logger *slog.Logger) warehouse.Source { return New(logger) })
}

// Source implements warehouse.Source for Snowflake.
type Source struct {
	warehouse.BaseSQLSource
}

// New creates a Snowflake source. If logger is nil, a discard logger is used.
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
	return "snowflake"
}

// Connect establishes a connection to Snowflake.
func (s *Source) Connect(ctx context.Context, cfg warehouse.Config) error {
	sfCfg, err := buildConfig(cfg)
	if err != nil {
		return err
	}

	dsn, err := gosnowflake.DSN(sfCfg)
	if err != nil {
		return fmt.Errorf("invalid snowflake configuration: %w", err)
	}

	s.Logger.Debug("connecting to snowflake",
		slog.String("account", cfg.Account),
		slog.String("user", cfg.User),
		slog.String("authenticator", sfCfg.Authenticator.String()))

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return fmt.Errorf("failed to open snowflake connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping snowflake: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return nil
}

// buildConfig maps warehouse settings onto the driver config. Without an
// explicit authenticator, a password selects password auth and its absence
// selects browser SSO.
func buildConfig(cfg warehouse.Config) (*gosnowflake.Config, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("snowflake account is required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("snowflake user is required")
	}

	sfCfg := &gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
		Host:      cfg.Host,
		Port:      cfg.Port,
	}

	switch strings.ToLower(cfg.Authenticator) {
	case "":
		if cfg.Password == "" {
			sfCfg.Authenticator = gosnowflake.AuthTypeExternalBrowser
		} else {
			sfCfg.Authenticator = gosnowflake.AuthTypeSnowflake
		}
	case "snowflake":
		sfCfg.Authenticator = gosnowflake.AuthTypeSnowflake
	case "externalbrowser":
		sfCfg.Authenticator = gosnowflake.AuthTypeExternalBrowser
	case "oauth":
		sfCfg.Authenticator = gosnowflake.AuthTypeOAuth
		sfCfg.Token = cfg.Options["token"]
		if sfCfg.Token == "" {
			return nil, fmt.Errorf("snowflake oauth requires options.token")
		}
	default:
		return nil, fmt.Errorf("unsupported snowflake authenticator %q", cfg.Authenticator)
	}

	return sfCfg, nil
}

// Ensure Source implements warehouse.Source interface
var _ warehouse.Source = (*Source)(nil)
