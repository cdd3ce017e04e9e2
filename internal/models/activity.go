package models

import (
	"time"
)

// Region identifies the market a user belongs to. It is derived once per
// user from the mirror the account was registered on and never changes
// within a dataset.
type Region string

const (
	RegionCIS   Region = "cis"
	RegionAsia  Region = "asia"
	RegionLatam Region = "latam"
)

// Regions lists every region a batch run processes, in processing order.
var Regions = []Region{RegionCIS, RegionAsia, RegionLatam}

// Valid reports whether the region is one of the known markets.
func (r Region) Valid() bool {
	switch r {
	case RegionCIS, RegionAsia, RegionLatam:
		return true
	}
	return false
}

// PaymentEvent is one completed payment as delivered by the acquisition
// layer: deduplicated, restricted to successful transactions, test and
// partner accounts already excluded.
type PaymentEvent struct {
	UserID string
	Date   time.Time
	Region Region
}

// LoginEvent is one observed login day together with the account creation
// date of the user who logged in.
type LoginEvent struct {
	UserID         string
	AccountCreated time.Time
	Date           time.Time
	Region         Region
}

// ActivityRecord is one user-day row of the unified activity dataset. A
// login and a payment on the same day collapse into a single record; a
// login without a payment or a payment without a login each keep their
// own record. Zero time values mean the field is absent for this record.
type ActivityRecord struct {
	UserID         string
	Region         Region
	AccountCreated time.Time
	LoginDate      time.Time
	PaymentDate    time.Time

	// PaymentSeq is the 1-based ordinal of this payment among all of the
	// user's payments ordered by date ascending. Zero when the record
	// carries no payment.
	PaymentSeq int
}

// HasLogin reports whether the record originates from a login event.
func (r ActivityRecord) HasLogin() bool {
	return !r.LoginDate.IsZero()
}

// HasPayment reports whether the record carries a payment.
func (r ActivityRecord) HasPayment() bool {
	return r.PaymentSeq > 0
}

// Day truncates t to its calendar day in UTC. All dataset dates are
// normalized through this before any window comparison.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
