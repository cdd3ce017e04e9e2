package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/core-analytics/retention-etl/internal/models"
)

// Operational reads payment and login activity straight from the
// operational Postgres store. Used when the warehouse export lags behind
// the day being processed; same event shapes, same filters.
type Operational struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewOperational wraps an existing pool as an acquisition source.
func NewOperational(pool *pgxpool.Pool, logger *zap.Logger) *Operational {
	return &Operational{pool: pool, logger: logger}
}

// FetchPayments returns completed payments since the given date.
func (o *Operational) FetchPayments(ctx context.Context, since time.Time) ([]models.PaymentEvent, error) {
	rows, err := o.pool.Query(ctx, operationalPaymentsQuery, models.Day(since))
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
		o.logger.Warn("Skipped payments without a region mapping", zap.Int("rows", skipped))
	}
	o.logger.Info("Fetched payment events", zap.Int("rows", len(out)), zap.Time("since", since))
	return out, nil
}

// FetchLogins returns login days since the given date.
func (o *Operational) FetchLogins(ctx context.Context, since time.Time) ([]models.LoginEvent, error) {
	rows, err := o.pool.Query(ctx, operationalLoginsQuery, models.Day(since))
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
		o.logger.Warn("Skipped logins without a region mapping", zap.Int("rows", skipped))
	}
	o.logger.Info("Fetched login events", zap.Int("rows", len(out)), zap.Time("since", since))
	return out, nil
}

// Close releases the pool.
func (o *Operational) Close() error {
	o.pool.Close()
	return nil
}
