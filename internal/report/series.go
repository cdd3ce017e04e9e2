package report

import (
	"time"

	"github.com/core-analytics/retention-etl/internal/cohort"
	"github.com/core-analytics/retention-etl/internal/dataset"
	"github.com/core-analytics/retention-etl/internal/models"
)

// BuildSeries computes the state-population counts for one (date, region)
// unit. Only the states in models.SeriesStates are tracked; churn_ns has
// no series counterpart.
func BuildSeries(ds *dataset.Dataset, date time.Time, region models.Region) []models.SeriesRow {
	snap := cohort.NewSnapshot(ds, date, region)

	rows := make([]models.SeriesRow, 0, len(models.SeriesStates))
	for _, state := range models.SeriesStates {
		rows = append(rows, models.SeriesRow{
			Region:     region,
			DateState:  snap.Date,
			State:      state,
			UsersCount: snap.State(state).Len(),
		})
	}
	return rows
}
