// Package dataset builds and serves the unified per-user-per-day activity
// dataset that every cohort computation reads. The dataset is rebuilt from
// scratch on every batch run and is immutable afterwards.
package dataset

import (
	"sort"
	"time"

	"github.com/core-analytics/retention-etl/internal/models"
)

// Dataset is the joined login/payment activity table. Rows are unique per
// (user, day, region) key and grouped by region for cheap per-region
// classification.
type Dataset struct {
	rows     []models.ActivityRecord
	byRegion map[models.Region][]models.ActivityRecord
}

// Len returns the total number of activity records.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows returns every activity record, ordered by (region, user, day).
func (d *Dataset) Rows() []models.ActivityRecord {
	return d.rows
}

// Region returns the records of a single region. The returned slice is
// shared and must not be mutated.
func (d *Dataset) Region(r models.Region) []models.ActivityRecord {
	return d.byRegion[r]
}

func newDataset(rows []models.ActivityRecord) *Dataset {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return recordDay(a).Before(recordDay(b))
	})

	byRegion := make(map[models.Region][]models.ActivityRecord)
	for _, r := range rows {
		byRegion[r.Region] = append(byRegion[r.Region], r)
	}

	return &Dataset{rows: rows, byRegion: byRegion}
}

// recordDay is the join-key day of a record: the login day when present,
// otherwise the payment day.
func recordDay(r models.ActivityRecord) time.Time {
	if r.HasLogin() {
		return r.LoginDate
	}
	return r.PaymentDate
}
