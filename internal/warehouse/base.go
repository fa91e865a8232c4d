package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapexpose/pkg/core"
)

// BaseSQLSource provides the database/sql plumbing shared by sources.
// Embed it in concrete implementations to get Close and Dependencies.
type BaseSQLSource struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLSource) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing warehouse connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLSource) IsConnected() bool {
	return b.DB != nil
}

// Dependencies runs the configured dependency query and normalizes the
// result.
func (b *BaseSQLSource) Dependencies(ctx context.Context) ([]core.DependencyEdge, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := b.DB.QueryContext(ctx, b.Cfg.DependencyQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []core.DependencyEdge
	for rows.Next() {
		var cols [6]sql.NullString
		if err := rows.Scan(&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5]); err != nil {
			return nil, fmt.Errorf("failed to scan dependency row: %w", err)
		}
		edges = append(edges, core.DependencyEdge{
			Referenced: core.TableRef{
				Database: lower(cols[0]),
				Schema:   lower(cols[1]),
				Table:    lower(cols[2]),
			},
			Referencing: core.TableRef{
				Database: lower(cols[3]),
				Schema:   lower(cols[4]),
				Table:    lower(cols[5]),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependency rows: %w", err)
	}

	if b.Logger != nil {
		b.Logger.Debug("fetched dependency edges", slog.Int("count", len(edges)))
	}
	return edges, nil
}

func lower(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return strings.ToLower(s.String)
}
