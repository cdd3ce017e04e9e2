package models

import (
	"time"
)

// State names one of the behavioral cohorts. States are independent
// predicates over the activity dataset, not a partition: a user may
// satisfy several of them on the same day.
type State string

const (
	StateNewNonSpender    State = "new_ns"
	StateActiveNonSpender State = "active_ns"
	StateChurnNonSpender  State = "churn_ns"
	StateNewSpenders      State = "new_spenders"
	StateActiveSpenders   State = "active_spenders"
	StateActiveUsers      State = "active_users"
	StateChurnSpenders    State = "churn_spenders"
)

// MatrixStates are the source states evaluated for the migration matrix,
// in the row order the matrix is assembled.
var MatrixStates = []State{
	StateNewNonSpender,
	StateActiveNonSpender,
	StateChurnNonSpender,
	StateNewSpenders,
	StateActiveSpenders,
	StateActiveUsers,
	StateChurnSpenders,
}

// SeriesStates are the states tracked by the population time series.
// churn_ns has a matrix row but no series row; the asymmetry is part of
// the published dataset and is kept as is.
var SeriesStates = []State{
	StateNewNonSpender,
	StateActiveNonSpender,
	StateNewSpenders,
	StateActiveSpenders,
	StateChurnSpenders,
	StateActiveUsers,
}

// Output table names in the reporting database.
const (
	TableMigrationMatrix = "core_migration_matrix"
	TableStateSeries     = "core_state_series"
)

// MatrixRow is one migration-matrix row: the share of a source state's
// population (as of DateState) observed in each destination state seven
// days later. Only the destinations tracked for the given source carry a
// value; the rest stay nil and persist as NULL. All values are nil when
// the source population was empty on DateState.
type MatrixRow struct {
	SourceState    State
	ActiveNS       *float64
	ChurnNS        *float64
	NewSpenders    *float64
	ActiveSpenders *float64
	ChurnSpenders  *float64
	ActiveUsers    *float64
	Region         Region
	DateState      time.Time
}

// MatrixColumns is the column order MatrixRow.Values follows. It matches
// the core_migration_matrix table.
var MatrixColumns = []string{
	"source_state",
	"active_ns",
	"churn_ns",
	"new_spenders",
	"active_spenders",
	"churn_spenders",
	"active_users",
	"region",
	"date_state",
}

// Values renders the row for persistence, in MatrixColumns order.
func (r MatrixRow) Values() []any {
	return []any{
		string(r.SourceState),
		r.ActiveNS,
		r.ChurnNS,
		r.NewSpenders,
		r.ActiveSpenders,
		r.ChurnSpenders,
		r.ActiveUsers,
		string(r.Region),
		r.DateState,
	}
}

// SeriesRow is one point of the state-population time series.
type SeriesRow struct {
	Region     Region
	DateState  time.Time
	State      State
	UsersCount int
}

// SeriesColumns is the column order SeriesRow.Values follows.
var SeriesColumns = []string{"region", "date_state", "state", "users_count"}

// Values renders the row for persistence, in SeriesColumns order.
func (r SeriesRow) Values() []any {
	return []any{string(r.Region), r.DateState, string(r.State), r.UsersCount}
}
