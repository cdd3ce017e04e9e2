package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/core-analytics/retention-etl/internal/models"
)

type joinKey struct {
	userID string
	day    time.Time
	region models.Region
}

// Build joins payment and login events into the unified activity dataset.
//
// Payment sequence numbers are assigned per user by payment date
// ascending, 1-based; payments on the same day keep their input order.
// Login and payment events are then full-outer-joined on
// (user, day, region): a login and a payment on the same day collapse
// into one record, everything else keeps its own record. Duplicate input
// events are dropped before sequencing.
//
// Build is a pure transform. Empty inputs produce an empty dataset;
// events with a missing user, a zero date, or an unknown region fail the
// build with a models.ErrMalformedRecord / models.ErrUnknownRegion wrap.
func Build(payments []models.PaymentEvent, logins []models.LoginEvent) (*Dataset, error) {
	seqPayments, err := sequencePayments(payments)
	if err != nil {
		return nil, err
	}

	rows := make(map[joinKey]models.ActivityRecord, len(logins)+len(seqPayments))

	seenLogin := make(map[joinKey]struct{}, len(logins))
	for i, ev := range logins {
		if ev.UserID == "" || ev.Date.IsZero() {
			return nil, fmt.Errorf("login event %d: %w", i, models.ErrMalformedRecord)
		}
		if !ev.Region.Valid() {
			return nil, fmt.Errorf("login event %d: region %q: %w", i, ev.Region, models.ErrUnknownRegion)
		}

		key := joinKey{ev.UserID, models.Day(ev.Date), ev.Region}
		if _, dup := seenLogin[key]; dup {
			continue
		}
		seenLogin[key] = struct{}{}

		rows[key] = models.ActivityRecord{
			UserID:         ev.UserID,
			Region:         ev.Region,
			AccountCreated: models.Day(ev.AccountCreated),
			LoginDate:      key.day,
		}
	}

	for _, p := range seqPayments {
		key := joinKey{p.userID, p.day, p.region}
		rec, ok := rows[key]
		if !ok {
			// Payment with no same-day login: a record of its own. The
			// account creation date travels with login events only, so it
			// stays unset here, as in the source data.
			rows[key] = models.ActivityRecord{
				UserID:      p.userID,
				Region:      p.region,
				PaymentDate: p.day,
				PaymentSeq:  p.seq,
			}
			continue
		}
		rec.PaymentDate = p.day
		rec.PaymentSeq = p.seq
		rows[key] = rec
	}

	out := make([]models.ActivityRecord, 0, len(rows))
	for _, rec := range rows {
		out = append(out, rec)
	}
	return newDataset(out), nil
}

type sequencedPayment struct {
	userID string
	day    time.Time
	region models.Region
	seq    int
}

// sequencePayments deduplicates payment events by (user, day, region) and
// assigns each user's payments a 1-based ordinal by date ascending. The
// sort is stable so same-day payments keep their input order; with the
// per-day dedup there is at most one payment row per user-day anyway.
func sequencePayments(payments []models.PaymentEvent) ([]sequencedPayment, error) {
	seen := make(map[joinKey]struct{}, len(payments))
	perUser := make(map[string][]sequencedPayment)
	order := make([]string, 0)

	for i, ev := range payments {
		if ev.UserID == "" || ev.Date.IsZero() {
			return nil, fmt.Errorf("payment event %d: %w", i, models.ErrMalformedRecord)
		}
		if !ev.Region.Valid() {
			return nil, fmt.Errorf("payment event %d: region %q: %w", i, ev.Region, models.ErrUnknownRegion)
		}

		key := joinKey{ev.UserID, models.Day(ev.Date), ev.Region}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if _, ok := perUser[ev.UserID]; !ok {
			order = append(order, ev.UserID)
		}
		perUser[ev.UserID] = append(perUser[ev.UserID], sequencedPayment{
			userID: ev.UserID,
			day:    key.day,
			region: ev.Region,
		})
	}

	out := make([]sequencedPayment, 0, len(seen))
	for _, userID := range order {
		ps := perUser[userID]
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].day.Before(ps[j].day) })
		for i := range ps {
			ps[i].seq = i + 1
		}
		out = append(out, ps...)
	}
	return out, nil
}
