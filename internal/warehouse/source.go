// Package warehouse reads table-to-table dependency edges from a data
// warehouse.
//
// Concrete sources live in sub-packages and register themselves in init();
// import them with a blank identifier to make them available:
//
//	import _ "github.com/leapstack-labs/leapexpose/internal/warehouse/snowflake"
package warehouse

import (
	"context"

	"github.com/leapstack-labs/leapexpose/pkg/core"
)

// DefaultQuery selects the dependency view of the reporting account.
const DefaultQuery = `select referenced_database, referenced_schema, referenced_object_name,
       referencing_database, referencing_schema, referencing_object_name
from prod_reporting.snowflake_account_usage.object_dependencies
where referenced_database is not null`

// Config holds connection settings for a warehouse source.
type Config struct {
	Type          string            `koanf:"type"`
	Path          string            `koanf:"path"`
	Account       string            `koanf:"account"`
	Host          string            `koanf:"host"`
	Port          int               `koanf:"port"`
	User          string            `koanf:"user"`
	Password      string            `koanf:"password"`
	Database      string            `koanf:"database"`
	Schema        string            `koanf:"schema"`
	Warehouse     string            `koanf:"warehouse"`
	Role          string            `koanf:"role"`
	Authenticator string            `koanf:"authenticator"`
	Query         string            `koanf:"query"`
	Options       map[string]string `koanf:"options"`
	Params        map[string]any    `koanf:"params"`
}

// Enabled reports whether a warehouse has been configured at all.
func (c Config) Enabled() bool {
	return c.Type != ""
}

// DependencyQuery returns the configured query or DefaultQuery.
func (c Config) DependencyQuery() string {
	if c.Query != "" {
		return c.Query
	}
	return DefaultQuery
}

// Source fetches dependency edges. The query must return six columns:
// referenced database, schema, object, then referencing database, schema,
// object.
type Source interface {
	// Name returns the registered adapter name.
	Name() string

	// Connect opens the connection.
	Connect(ctx context.Context, cfg Config) error

	// Dependencies runs the dependency query. Values are lower-cased.
	Dependencies(ctx context.Context) ([]core.DependencyEdge, error)

	// Close releases the connection.
	Close() error
}
