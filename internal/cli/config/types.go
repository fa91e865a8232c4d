// Package config provides configuration management for the leapexpose CLI.
package config

import (
	"github.com/leapstack-labs/leapexpose/internal/warehouse"
)

// WarehouseConfig is an alias for the warehouse connection settings.
type WarehouseConfig = warehouse.Config

// Config holds all CLI configuration options.
type Config struct {
	// Tableau connection
	ServerURL   string  `koanf:"server_url"`
	APIVersion  string  `koanf:"api_version"`
	Site        string  `koanf:"site"`
	TokenName   string  `koanf:"token_name"`
	TokenSecret string  `koanf:"token_secret"`
	RateLimit   float64 `koanf:"rate_limit"`
	Timeout     string  `koanf:"timeout"`

	// Scope selection
	ScopePasses        int      `koanf:"scope_passes"`
	DatasourceProjects []string `koanf:"datasource_projects"`
	WorkbookProjects   []string `koanf:"workbook_projects"`

	// Manifest
	BaseURL        string   `koanf:"base_url"`
	Output         string   `koanf:"output"`
	Format         string   `koanf:"format"`
	RefDatabases   []string `koanf:"ref_databases"`
	SourceDatabase string   `koanf:"source_database"`
	DumpRows       string   `koanf:"dump_rows"`

	// Presentation
	Display string `koanf:"display"`
	Verbose bool   `koanf:"verbose"`

	Warehouse *WarehouseConfig `koanf:"warehouse"`
}

// Default configuration values.
const (
	DefaultServerURL      = "https://10az.online.tableau.com/"
	DefaultSite           = "sunstate"
	DefaultOutput         = "exposures/exposures.yml"
	DefaultFormat         = "yaml"
	DefaultDisplay        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultTimeout        = "60s"
	DefaultRateLimit      = 5.0
	DefaultScopePasses    = 5
	DefaultSourceDatabase = "prod_raw"
)

// Legacy environment variables read when the LEAPEXPOSE_ equivalents are
// not set.
const (
	LegacyTokenNameEnv   = "PERSONAL_ACCESS_TOKEN_NAME"
	LegacyTokenSecretEnv = "PERSONAL_ACCESS_TOKEN_SECRET"
	LegacySiteEnv        = "SITE_ID"
)
