// Package store persists computed retention artifacts into the reporting
// Postgres database and serves the batch watermarks read from it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/core-analytics/retention-etl/internal/models"
)

// PostgresStore implements the result sink: idempotent upsert keyed by
// each destination table's declared primary key, plus the watermark
// lookups.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger

	// primary-key columns per table, filled lazily from
	// information_schema
	pkCache map[string][]string
}

// NewPostgresStore creates a new reporting store.
func NewPostgresStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:      db,
		logger:  logger,
		pkCache: make(map[string][]string),
	}
}

// Initialize creates the reporting tables if they do not exist.
func (s *PostgresStore) Initialize(ctx context.Context) error {
	queries := []string{
		createMigrationMatrixTable,
		createStateSeriesTable,
		createIndexes,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	s.logger.Info("Reporting tables initialized successfully")
	return nil
}

// LastProcessedDate returns MAX(date_state) of the given table. The
// second return is false when the table holds no rows yet.
func (s *PostgresStore) LastProcessedDate(ctx context.Context, table string) (time.Time, bool, error) {
	query := fmt.Sprintf("SELECT MAX(date_state) FROM %s", table)

	var max sql.NullTime
	if err := s.db.QueryRow(ctx, query).Scan(&max); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read watermark of %s: %w", table, err)
	}
	if !max.Valid {
		return time.Time{}, false, nil
	}
	return models.Day(max.Time), true, nil
}

// Upsert writes the rows into the table with a single multi-row
// INSERT ... ON CONFLICT (<primary key>) DO UPDATE, overwriting rows
// whose key already exists. Rerunning the same unit therefore replaces
// its output instead of duplicating it. A nil or empty row batch is a
// no-op.
func (s *PostgresStore) Upsert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	pk, err := s.primaryKey(ctx, table)
	if err != nil {
		return err
	}

	query, args, err := buildUpsert(table, columns, pk, rows)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: table %s: %v", models.ErrUpsertFailed, table, err)
	}

	s.logger.Debug("Upserted rows",
		zap.String("table", table),
		zap.Int("rows", len(rows)),
	)
	return nil
}

// primaryKey discovers the table's primary-key columns from
// information_schema, once per table.
func (s *PostgresStore) primaryKey(ctx context.Context, table string) ([]string, error) {
	if pk, ok := s.pkCache[table]; ok {
		return pk, nil
	}

	query := `
		SELECT c.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.constraint_column_usage AS ccu USING (constraint_schema, constraint_name)
		JOIN information_schema.columns AS c ON c.table_schema = tc.constraint_schema
		  AND tc.table_name = c.table_name AND ccu.column_name = c.column_name
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = $1
	`

	rows, err := s.db.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary key of %s: %w", table, err)
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("failed to read primary key of %s: %w", table, err)
		}
		pk = append(pk, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read primary key of %s: %w", table, err)
	}
	if len(pk) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoPrimaryKey, table)
	}

	s.pkCache[table] = pk
	return pk, nil
}

// buildUpsert renders the multi-row upsert statement with positional
// placeholders and the flattened argument list.
func buildUpsert(table string, columns, pk []string, rows [][]any) (string, []any, error) {
	args := make([]any, 0, len(rows)*len(columns))
	values := make([]string, 0, len(rows))

	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("row %d has %d values for %d columns: %w",
				i, len(row), len(columns), models.ErrUnknownColumn)
		}

		ph := make([]string, len(row))
		for j, v := range row {
			args = append(args, v)
			ph[j] = fmt.Sprintf("$%d", len(args))
		}
		values = append(values, "("+strings.Join(ph, ", ")+")")
	}

	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(values, ", "),
		strings.Join(pk, ", "),
		strings.Join(assignments, ", "),
	)

	return query, args, nil
}
