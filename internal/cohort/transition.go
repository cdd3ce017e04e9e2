package cohort

import (
	"github.com/core-analytics/retention-etl/internal/models"
)

// horizonDays is the length of the leading window transitions are
// measured over.
const horizonDays = 7

// Destinations holds the transition percentages of one source state: the
// share of its population observed in each destination state during the
// leading 7-day window. Only the fields of the source's DestinationKind
// are populated; every field is nil when the source population was empty
// on the reference date, which marks the percentages as undefined rather
// than zero.
//
// The destination categories can overlap and do not cover every outcome,
// so the populated percentages are not expected to sum to 100.
type Destinations struct {
	ActiveNS       *float64
	ChurnNS        *float64
	NewSpenders    *float64
	ActiveSpenders *float64
	ChurnSpenders  *float64
	ActiveUsers    *float64
}

// Transitions measures where the given source population lands during
// the leading window (D, D+7]. A record belongs to the window when its
// activity day, the login day or the payment day for payment-only
// records, falls strictly after D and no later than D+7.
func (s *Snapshot) Transitions(def Definition, source Set) Destinations {
	if source.Len() == 0 {
		return Destinations{}
	}

	windowEnd := s.Date.AddDate(0, 0, horizonDays)

	// Users from the source population seen in the window, split by what
	// their window rows carry.
	present := NewSet()
	paid := NewSet()
	firstPay := NewSet()
	repeatPay := NewSet()

	for _, r := range s.rows {
		day := r.LoginDate
		if !r.HasLogin() {
			day = r.PaymentDate
		}
		if !day.After(s.Date) || day.After(windowEnd) {
			continue
		}
		if !source.Has(r.UserID) {
			continue
		}
		present.Add(r.UserID)
		if r.HasPayment() {
			paid.Add(r.UserID)
			if r.PaymentSeq > 1 {
				repeatPay.Add(r.UserID)
			} else {
				firstPay.Add(r.UserID)
			}
		}
	}

	total := source.Len()
	pct := func(n int) *float64 {
		v := float64(n) / float64(total) * 100
		return &v
	}

	attrition := pct(total - present.Len())

	switch def.Destinations {
	case NonSpenderDestinations:
		return Destinations{
			ActiveNS:       pct(present.Diff(paid).Len()),
			ChurnNS:        attrition,
			NewSpenders:    pct(firstPay.Diff(repeatPay).Len()),
			ActiveSpenders: pct(repeatPay.Len()),
		}
	default:
		return Destinations{
			ChurnSpenders:  attrition,
			ActiveUsers:    pct(present.Diff(repeatPay).Len()),
			ActiveSpenders: pct(repeatPay.Len()),
		}
	}
}

// MatrixRow runs the full classify-then-evaluate step for one source
// state and renders it as a persistable matrix row.
func (s *Snapshot) MatrixRow(def Definition) models.MatrixRow {
	dest := s.Transitions(def, def.Members(s))
	return models.MatrixRow{
		SourceState:    def.Name,
		ActiveNS:       dest.ActiveNS,
		ChurnNS:        dest.ChurnNS,
		NewSpenders:    dest.NewSpenders,
		ActiveSpenders: dest.ActiveSpenders,
		ChurnSpenders:  dest.ChurnSpenders,
		ActiveUsers:    dest.ActiveUsers,
		Region:         s.Region,
		DateState:      s.Date,
	}
}
