package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from warehouse.Config.Params using mapstructure.
type Params struct {
	// Files maps a view name to an exported dependency file (.csv or .parquet).
	Files map[string]string `mapstructure:"files"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// ParseParams decodes the raw params map. Nil or empty input yields an
// empty Params.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}
	if err := mapstructure.Decode(raw, p); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}
