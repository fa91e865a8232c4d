package rowdump

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/leapexpose/pkg/core"
)

// WriteCSV writes a header line and one record per row.
func WriteCSV(w io.Writer, rows []core.FlatRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile replaces path with a CSV dump of rows.
func WriteCSVFile(path string, rows []core.FlatRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
