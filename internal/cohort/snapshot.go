// Package cohort classifies the user population into behavioral states as
// of a reference date and measures day-over-day transitions between
// states across a fixed 7-day horizon.
package cohort

import (
	"time"

	"github.com/core-analytics/retention-etl/internal/dataset"
	"github.com/core-analytics/retention-etl/internal/models"
)

// Snapshot precomputes the base activity sets for one (reference date,
// region) pair. Every state definition is a set expression over these;
// building them once replaces the per-state window rescans of a naive
// implementation without changing any boundary.
//
// Window edges, with D the reference date:
//
//	trailing week   [D-6, D]     7 days inclusive
//	trailing month  [D-29, D-7]  the 23 days before the trailing week
//	leading week    (D, D+7]     strictly after D
type Snapshot struct {
	Date   time.Time
	Region models.Region

	// PaidEver: users with any payment on or before D.
	PaidEver Set
	// CreatedWeek: users whose account was created inside the trailing
	// week.
	CreatedWeek Set
	// LoginWeek: users with a login inside the trailing week.
	LoginWeek Set
	// LoginMonth: users with a login inside the trailing month.
	LoginMonth Set
	// PayWeek: users with a payment inside the trailing week.
	PayWeek Set
	// PayMonth: users with a payment inside the trailing month.
	PayMonth Set
	// PayWeekFirst: users whose first-ever payment falls inside the
	// trailing week.
	PayWeekFirst Set
	// PayWeekRepeat: users with a repeat payment (sequence > 1) inside
	// the trailing week.
	PayWeekRepeat Set
	// EstablishedLoginWeek: users with a login inside the trailing week
	// whose account predates the trailing week. The account-age check is
	// evaluated per row, so it only sees users whose login rows carry a
	// creation date.
	EstablishedLoginWeek Set

	rows []models.ActivityRecord
}

// NewSnapshot scans the region's activity records once and fills every
// base set for the given reference date.
func NewSnapshot(ds *dataset.Dataset, date time.Time, region models.Region) *Snapshot {
	d := models.Day(date)
	weekStart := d.AddDate(0, 0, -6)
	monthStart := d.AddDate(0, 0, -29)
	monthEnd := weekStart.AddDate(0, 0, -1)

	s := &Snapshot{
		Date:                 d,
		Region:               region,
		PaidEver:             NewSet(),
		CreatedWeek:          NewSet(),
		LoginWeek:            NewSet(),
		LoginMonth:           NewSet(),
		PayWeek:              NewSet(),
		PayMonth:             NewSet(),
		PayWeekFirst:         NewSet(),
		PayWeekRepeat:        NewSet(),
		EstablishedLoginWeek: NewSet(),
		rows:                 ds.Region(region),
	}

	for _, r := range s.rows {
		if r.HasPayment() && !r.PaymentDate.After(d) {
			s.PaidEver.Add(r.UserID)
		}

		if !r.AccountCreated.IsZero() && within(r.AccountCreated, weekStart, d) {
			s.CreatedWeek.Add(r.UserID)
		}

		if r.HasLogin() {
			if within(r.LoginDate, weekStart, d) {
				s.LoginWeek.Add(r.UserID)
				if !r.AccountCreated.IsZero() && r.AccountCreated.Before(weekStart) {
					s.EstablishedLoginWeek.Add(r.UserID)
				}
			}
			if within(r.LoginDate, monthStart, monthEnd) {
				s.LoginMonth.Add(r.UserID)
			}
		}

		if r.HasPayment() {
			if within(r.PaymentDate, weekStart, d) {
				s.PayWeek.Add(r.UserID)
				if r.PaymentSeq == 1 {
					s.PayWeekFirst.Add(r.UserID)
				} else {
					s.PayWeekRepeat.Add(r.UserID)
				}
			}
			if within(r.PaymentDate, monthStart, monthEnd) {
				s.PayMonth.Add(r.UserID)
			}
		}
	}

	return s
}

// State returns the members of the named state as of the snapshot's date
// and region. Unknown states return an empty set.
func (s *Snapshot) State(name models.State) Set {
	def, ok := Lookup(name)
	if !ok {
		return NewSet()
	}
	return def.Members(s)
}

// within reports from <= t <= to, on day-normalized times.
func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
