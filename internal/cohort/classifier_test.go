package cohort

import (
	"testing"
	"time"

	"github.com/core-analytics/retention-etl/internal/dataset"
	"github.com/core-analytics/retention-etl/internal/models"
)

// Reference date used across the classifier tests. The trailing week is
// [2024-03-09, 2024-03-15], the trailing month [2024-02-15, 2024-03-08].
const refDate = "2024-03-15"

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func build(t *testing.T, payments []models.PaymentEvent, logins []models.LoginEvent) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Build(payments, logins)
	if err != nil {
		t.Fatalf("failed to build dataset: %v", err)
	}
	return ds
}

func pay(t *testing.T, user, date string, region models.Region) models.PaymentEvent {
	t.Helper()
	return models.PaymentEvent{UserID: user, Date: day(t, date), Region: region}
}

func visit(t *testing.T, user, created, date string, region models.Region) models.LoginEvent {
	t.Helper()
	ev := models.LoginEvent{UserID: user, Date: day(t, date), Region: region}
	if created != "" {
		ev.AccountCreated = day(t, created)
	}
	return ev
}

func snapshotAt(t *testing.T, ds *dataset.Dataset, date string, region models.Region) *Snapshot {
	t.Helper()
	return NewSnapshot(ds, day(t, date), region)
}

func assertMembers(t *testing.T, got Set, want ...string) {
	t.Helper()
	if got.Len() != len(want) {
		t.Fatalf("set has %d members %v, want %d %v", got.Len(), got.Sorted(), len(want), want)
	}
	for _, id := range want {
		if !got.Has(id) {
			t.Errorf("missing member %s, have %v", id, got.Sorted())
		}
	}
}

func TestNewNonSpenderScenario(t *testing.T) {
	// Single user, account created D-3, one login on D, no payments.
	ds := build(t, nil, []models.LoginEvent{
		visit(t, "U1", "2024-03-12", refDate, models.RegionCIS),
	})
	snap := snapshotAt(t, ds, refDate, models.RegionCIS)

	assertMembers(t, snap.State(models.StateNewNonSpender), "U1")
	// The account is too new for active_ns.
	assertMembers(t, snap.State(models.StateActiveNonSpender))
}

func TestNewNonSpenderExcludesPayers(t *testing.T) {
	ds := build(t,
		[]models.PaymentEvent{pay(t, "payer", "2024-03-13", models.RegionCIS)},
		[]models.LoginEvent{
			visit(t, "payer", "2024-03-12", "2024-03-13", models.RegionCIS),
			visit(t, "fresh", "2024-03-12", "2024-03-13", models.RegionCIS),
		},
	)
	snap := snapshotAt(t, ds, refDate, models.RegionCIS)

	newNS := snap.State(models.StateNewNonSpender)
	assertMembers(t, newNS, "fresh")

	// new_ns must never intersect the paid-ever population.
	for id := range newNS {
		if snap.PaidEver.Has(id) {
			t.Fatalf("new_ns member %s has paid", id)
		}
	}
}

func TestActiveNonSpenderBoundaries(t *testing.T) {
	ds := build(t, nil, []models.LoginEvent{
		// Created exactly on the week start: not strictly before it.
		visit(t, "edge", "2024-03-09", "2024-03-10", models.RegionCIS),
		// Created the day before the week start: qualifies.
		visit(t, "established", "2024-03-08", "2024-03-10", models.RegionCIS),
		// Old account, but the login predates the week.
		visit(t, "absent", "2023-01-01", "2024-03-08", models.RegionCIS),
	})
	snap := snapshotAt(t, ds, refDate, models.RegionCIS)

	assertMembers(t, snap.State(models.StateActiveNonSpender), "established")
}

func TestChurnNonSpenderWindows(t *testing.T) {
	ds := build(t,
		[]models.PaymentEvent{pay(t, "payer", "2024-02-20", models.RegionCIS)},
		[]models.LoginEvent{
			// Last login on the final day of the month window.
			visit(t, "gone", "2023-06-01", "2024-03-08", models.RegionCIS),
			// First day of the month window.
			visit(t, "gone_early", "2023-06-01", "2024-02-15", models.RegionCIS),
			// One day before the month window opens.
			visit(t, "too_old", "2023-06-01", "2024-02-14", models.RegionCIS),
			// Month-window login but came back this week.
			visit(t, "returned", "2023-06-01", "2024-02-20", models.RegionCIS),
			visit(t, "returned", "2023-06-01", "2024-03-10", models.RegionCIS),
			// Month-window login but has paid.
			visit(t, "payer", "2023-06-01", "2024-02-20", models.RegionCIS),
		},
	)
	snap := snapshotAt(t, ds, refDate, models.RegionCIS)

	assertMembers(t, snap.State(models.StateChurnNonSpender), "gone", "gone_early")
}

func TestNewAndActiveSpenders(t *testing.T) {
	ds := build(t,
		[]models.PaymentEvent{
			// First-ever payment this week.
			pay(t, "U2", "2024-03-13", models.RegionAsia),
			// First payment long ago, repeat payment this week.
			pay(t, "repeat", "2023-09-01", models.RegionAsia),
			pay(t, "repeat", "2024-03-11", models.RegionAsia),
			// First and second payment both inside the week: the repeat
			// disqualifies the user from new_spenders.
			pay(t, "burst", "2024-03-10", models.RegionAsia),
			pay(t, "burst", "2024-03-12", models.RegionAsia),
		},
		nil,
	)
	snap := snapshotAt(t, ds, refDate, models.RegionAsia)

	assertMembers(t, snap.State(models.StateNewSpenders), "U2")
	assertMembers(t, snap.State(models.StateActiveSpenders), "repeat", "burst")
}

func TestActiveUsers(t *testing.T) {
	ds := build(t,
		[]models.PaymentEvent{
			// Established payer, no payment this week.
			pay(t, "veteran", "2024-01-10", models.RegionCIS),
			// Established payer who also paid this week.
			pay(t, "paying", "2024-01-10", models.RegionCIS),
			pay(t, "paying", "2024-03-12", models.RegionCIS),
		},
		[]models.LoginEvent{
			visit(t, "veteran", "2023-01-01", "2024-03-11", models.RegionCIS),
			visit(t, "paying", "2023-01-01", "2024-03-11", models.RegionCIS),
			// Never paid, login this week.
			visit(t, "browser", "2023-01-01", "2024-03-11", models.RegionCIS),
		},
	)
	snap := snapshotAt(t, ds, refDate, models.RegionCIS)

	assertMembers(t, snap.State(models.StateActiveUsers), "veteran")
}

func TestChurnSpenders(t *testing.T) {
	ds := build(t,
		[]models.PaymentEvent{
			// Paid in the month window, silent since.
			pay(t, "lapsed", "2024-02-20", models.RegionLatam),
			// Paid in the month window but logged in this week.
			pay(t, "retained", "2024-02-20", models.RegionLatam),
			// Paid this week, outside the month window.
			pay(t, "current", "2024-03-12", models.RegionLatam),
		},
		[]models.LoginEvent{
			visit(t, "retained", "2023-01-01", "2024-03-10", models.RegionLatam),
		},
	)
	snap := snapshotAt(t, ds, refDate, models.RegionLatam)

	assertMembers(t, snap.State(models.StateChurnSpenders), "lapsed")
}

func TestRegionIsolation(t *testing.T) {
	ds := build(t,
		[]models.PaymentEvent{pay(t, "asian", "2024-03-12", models.RegionAsia)},
		[]models.LoginEvent{
			visit(t, "asian", "2024-03-12", "2024-03-12", models.RegionAsia),
			visit(t, "local", "2024-03-12", "2024-03-12", models.RegionCIS),
		},
	)
	snap := snapshotAt(t, ds, refDate, models.RegionCIS)

	for _, def := range Catalog {
		members := def.Members(snap)
		if members.Has("asian") {
			t.Errorf("state %s leaked a user from another region", def.Name)
		}
	}
	assertMembers(t, snap.State(models.StateNewNonSpender), "local")
}

func TestEmptyDatasetClassifiesNothing(t *testing.T) {
	ds := build(t, nil, nil)
	snap := snapshotAt(t, ds, refDate, models.RegionCIS)

	for _, def := range Catalog {
		if got := def.Members(snap); got.Len() != 0 {
			t.Errorf("state %s = %v, want empty", def.Name, got.Sorted())
		}
	}
}

func TestStateUnknownName(t *testing.T) {
	ds := build(t, nil, nil)
	snap := snapshotAt(t, ds, refDate, models.RegionCIS)

	if got := snap.State(models.State("nonsense")); got.Len() != 0 {
		t.Fatalf("unknown state returned members: %v", got.Sorted())
	}
}
