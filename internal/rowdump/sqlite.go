package rowdump

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapexpose/pkg/core"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // sqlite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a SQLite database of dumped runs.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) a dump database and migrates it.
// Use ":memory:" for an in-memory database.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores rows under runID in a single transaction.
func (s *Store) Save(ctx context.Context, runID string, rows []core.FlatRow) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, row_count) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), len(rows)); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO flat_rows (
		run_id, position, database_name, schema_name, table_name, project_name,
		content_kind, name, vizportal_url_id, owner_name, owner_email
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range rows {
		args := []any{runID, i}
		for _, v := range record(r) {
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dump: %w", err)
	}
	return nil
}

// Load returns the rows saved under runID in their original order.
func (s *Store) Load(ctx context.Context, runID string) ([]core.FlatRow, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		database_name, schema_name, table_name, project_name, content_kind,
		name, vizportal_url_id, owner_name, owner_email
	FROM flat_rows WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dump: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.FlatRow
	for rows.Next() {
		var r core.FlatRow
		var kind string
		if err := rows.Scan(&r.Table.Database, &r.Table.Schema, &r.Table.Table, &r.ProjectName,
			&kind, &r.Name, &r.URLID, &r.Owner.Name, &r.Owner.Email); err != nil {
			return nil, fmt.Errorf("failed to scan dump row: %w", err)
		}
		r.Kind = core.ContentKind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dump rows: %w", err)
	}
	return out, nil
}

// Runs returns the stored run ids, oldest first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
