package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/core-analytics/retention-etl/internal/models"
)

// Warehouse reads payment and login activity from the ClickHouse
// analytics warehouse.
type Warehouse struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWarehouse opens a ClickHouse connection and verifies it.
func NewWarehouse(dsn string, logger *zap.Logger) (*Warehouse, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping warehouse: %w", err)
	}

	logger.Info("Warehouse connection established")
	return &Warehouse{db: db, logger: logger}, nil
}

// FetchPayments returns completed payments since the given date.
func (w *Warehouse) FetchPayments(ctx context.Context, since time.Time) ([]models.PaymentEvent, error) {
	rows, err := w.db.QueryContext(ctx, warehousePaymentsQuery, models.Day(since))
	if err != nil {
		return nil, fmt.Errorf("%w: payments: %v", models.ErrSourceQuery, err)
	}
	defer rows.Close()

	var (
		out     []models.PaymentEvent
		skipped int
	)
	for rows.Next() {
		var (
			userID string
			date   time.Time
			region sql.NullString
		)
		if err := rows.Scan(&userID, &date, &region); err != nil {
			return nil, fmt.Errorf("%w: payments scan: %v", models.ErrSourceQuery, err)
		}

		r := models.Region(region.String)
		if !region.Valid || !r.Valid() {
			skipped++
			continue
		}

		out = append(out, models.PaymentEvent{
			UserID: userID,
			Date:   models.Day(date),
			Region: r,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: payments rows: %v", models.ErrSourceQuery, err)
	}

	if skipped > 0 {
		w.logger.Warn("Skipped payments without a region mapping", zap.Int("rows", skipped))
	}
	w.logger.Info("Fetched payment events", zap.Int("rows", len(out)), zap.Time("since", since))
	return out, nil
}

// FetchLogins returns login days since the given date.
func (w *Warehouse) FetchLogins(ctx context.Context, since time.Time) ([]models.LoginEvent, error) {
	rows, err := w.db.QueryContext(ctx, warehouseLoginsQuery, models.Day(since))
	if err != nil {
		return nil, fmt.Errorf("%w: logins: %v", models.ErrSourceQuery, err)
	}
	defer rows.Close()

	var (
		out     []models.LoginEvent
		skipped int
	)
	for rows.Next() {
		var (
			userID  string
			created sql.NullTime
			date    time.Time
			region  sql.NullString
		)
		if err := rows.Scan(&userID, &created, &date, &region); err != nil {
			return nil, fmt.Errorf("%w: logins scan: %v", models.ErrSourceQuery, err)
		}

		r := models.Region(region.String)
		if !region.Valid || !r.Valid() {
			skipped++
			continue
		}

		ev := models.LoginEvent{
			UserID: userID,
			Date:   models.Day(date),
			Region: r,
		}
		if created.Valid {
			ev.AccountCreated = models.Day(created.Time)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: logins rows: %v", models.ErrSourceQuery, err)
	}

	if skipped > 0 {
		w.logger.Warn("Skipped logins without a region mapping", zap.Int("rows", skipped))
	}
	w.logger.Info("Fetched login events", zap.Int("rows", len(out)), zap.Time("since", since))
	return out, nil
}

// Close releases the warehouse connection.
func (w *Warehouse) Close() error {
	return w.db.Close()
}
