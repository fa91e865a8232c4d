package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapexpose/internal/cli/config"
	"github.com/leapstack-labs/leapexpose/internal/cli/output"
	"github.com/leapstack-labs/leapexpose/internal/tableau"
	"github.com/leapstack-labs/leapexpose/internal/warehouse"
	"github.com/spf13/cobra"

	// Register warehouse sources
	_ "github.com/leapstack-labs/leapexpose/internal/warehouse/duckdb"
	_ "github.com/leapstack-labs/leapexpose/internal/warehouse/postgres"
	_ "github.com/leapstack-labs/leapexpose/internal/warehouse/snowflake"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Display)),
	}, nil
}

// getConfig returns the current configuration, loading it from the working
// directory when the root command did not.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

// newTableauClient builds the metadata client from configuration.
func newTableauClient(cfg *config.Config, logger *slog.Logger) *tableau.Client {
	return tableau.New(tableau.Config{
		ServerURL:   cfg.ServerURL,
		APIVersion:  cfg.APIVersion,
		Site:        cfg.Site,
		TokenName:   cfg.TokenName,
		TokenSecret: cfg.TokenSecret,
		Timeout:     cfg.TimeoutDuration(),
		RateLimit:   cfg.RateLimit,
	}, logger)
}

// openWarehouse connects the configured warehouse source. It returns a nil
// source when none is configured; the cleanup function is always safe to call.
func openWarehouse(ctx context.Context, cfg *config.Config, logger *slog.Logger) (warehouse.Source, func(), error) {
	noop := func() {}
	if cfg.Warehouse == nil || !cfg.Warehouse.Enabled() {
		return nil, noop, nil
	}

	src, err := warehouse.NewSource(*cfg.Warehouse, logger)
	if err != nil {
		return nil, noop, err
	}
	if err := src.Connect(ctx, *cfg.Warehouse); err != nil {
		_ = src.Close()
		return nil, noop, fmt.Errorf("failed to connect to %s warehouse: %w", src.Name(), err)
	}
	return src, func() { _ = src.Close() }, nil
}
