// Package report assembles the two derived artifacts of a batch run: the
// day-over-day migration matrix and the state-population time series.
package report

import (
	"time"

	"github.com/core-analytics/retention-etl/internal/cohort"
	"github.com/core-analytics/retention-etl/internal/dataset"
	"github.com/core-analytics/retention-etl/internal/models"
)

// BuildMatrix computes the full migration matrix for one (date, region)
// unit: one row per source state, each carrying the transition
// percentages toward its destination states across the 7-day horizon.
// Rows of empty source populations come back with all-nil percentages
// and persist as NULLs.
func BuildMatrix(ds *dataset.Dataset, date time.Time, region models.Region) []models.MatrixRow {
	snap := cohort.NewSnapshot(ds, date, region)

	rows := make([]models.MatrixRow, 0, len(cohort.Catalog))
	for _, def := range cohort.Catalog {
		rows = append(rows, snap.MatrixRow(def))
	}
	return rows
}
