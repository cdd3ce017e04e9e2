package cohort

import (
	"github.com/core-analytics/retention-etl/internal/models"
)

// DestinationKind selects which destination states a source state's
// transitions are measured against. Non-spender sources migrate toward
// active_ns / churn_ns / new_spenders / active_spenders; spender sources
// toward churn_spenders / active_users / active_spenders.
type DestinationKind int

const (
	NonSpenderDestinations DestinationKind = iota
	SpenderDestinations
)

// Definition declares one behavioral state: its name, the destination
// set its matrix row tracks, and its membership as a set expression over
// a Snapshot's base sets.
type Definition struct {
	Name         models.State
	Destinations DestinationKind
	Members      func(s *Snapshot) Set
}

// Catalog is the full state catalog, in matrix row order. The window
// boundaries live in the Snapshot base sets; each state is purely the
// set combination below.
var Catalog = []Definition{
	{
		// Account created this week, never paid.
		Name:         models.StateNewNonSpender,
		Destinations: NonSpenderDestinations,
		Members: func(s *Snapshot) Set {
			return s.CreatedWeek.Diff(s.PaidEver)
		},
	},
	{
		// Logged in this week on an account older than the week, never
		// paid.
		Name:         models.StateActiveNonSpender,
		Destinations: NonSpenderDestinations,
		Members: func(s *Snapshot) Set {
			return s.EstablishedLoginWeek.Diff(s.PaidEver)
		},
	},
	{
		// Logged in during the trailing month but not this week, never
		// paid.
		Name:         models.StateChurnNonSpender,
		Destinations: NonSpenderDestinations,
		Members: func(s *Snapshot) Set {
			return s.LoginMonth.Diff(s.PaidEver).Diff(s.LoginWeek)
		},
	},
	{
		// First-ever payment this week and no repeat payment this week.
		Name:         models.StateNewSpenders,
		Destinations: SpenderDestinations,
		Members: func(s *Snapshot) Set {
			return s.PayWeekFirst.Diff(s.PayWeekRepeat)
		},
	},
	{
		// Repeat payment this week.
		Name:         models.StateActiveSpenders,
		Destinations: SpenderDestinations,
		Members: func(s *Snapshot) Set {
			return s.PayWeekRepeat
		},
	},
	{
		// Established payers who returned via login this week without
		// paying this week.
		Name:         models.StateActiveUsers,
		Destinations: SpenderDestinations,
		Members: func(s *Snapshot) Set {
			return s.LoginWeek.Intersect(s.PaidEver).Diff(s.PayWeek)
		},
	},
	{
		// Paid during the trailing month but no login this week.
		Name:         models.StateChurnSpenders,
		Destinations: SpenderDestinations,
		Members: func(s *Snapshot) Set {
			return s.PayMonth.Diff(s.LoginWeek)
		},
	},
}

// Lookup returns the definition of the named state.
func Lookup(name models.State) (Definition, bool) {
	for _, def := range Catalog {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
