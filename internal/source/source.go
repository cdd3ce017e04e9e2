// Package source acquires the raw payment and login events a batch run
// is computed from. The cohort core never sees query text or
// connections; it consumes the event slices these implementations
// return.
//
// Two acquisition strategies exist: the analytics warehouse (ClickHouse)
// and the operational store (Postgres). Both return identical event
// shapes, already filtered to completed payments and real accounts.
package source

import (
	"context"
	"time"

	"github.com/core-analytics/retention-etl/internal/models"
)

// Source provides the two tabular inputs of a batch run.
type Source interface {
	// FetchPayments returns the deduplicated completed payments since
	// the given date.
	FetchPayments(ctx context.Context, since time.Time) ([]models.PaymentEvent, error)

	// FetchLogins returns the deduplicated login days since the given
	// date, each annotated with the account creation date.
	FetchLogins(ctx context.Context, since time.Time) ([]models.LoginEvent, error)

	Close() error
}
