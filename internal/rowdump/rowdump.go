// Package rowdump writes the flattened content-to-table rows to disk so a
// run can be inspected after the fact.
package rowdump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapexpose/pkg/core"
)

// Format is a dump file format.
type Format string

// Supported dump formats.
const (
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// Columns is the dump column order, shared by every format.
var Columns = []string{
	"database", "schema", "table", "project_name", "kind",
	"name", "vizportal_url_id", "owner_name", "owner_email",
}

// FormatForPath picks the format from the file extension. SQLite
// extensions select SQLite, anything else is CSV.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatCSV
	}
}

// Write dumps rows to path in the format implied by its extension. SQLite
// dumps accumulate across runs, keyed by runID; CSV dumps are replaced.
func Write(ctx context.Context, path, runID string, rows []core.FlatRow) error {
	switch FormatForPath(path) {
	case FormatSQLite:
		store, err := OpenStore(path)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return store.Save(ctx, runID, rows)
	default:
		return WriteCSVFile(path, rows)
	}
}

// record renders a row in Columns order.
func record(r core.FlatRow) []string {
	return []string{
		r.Table.Database,
		r.Table.Schema,
		r.Table.Table,
		r.ProjectName,
		string(r.Kind),
		r.Name,
		r.URLID,
		r.Owner.Name,
		r.Owner.Email,
	}
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	return nil
}
