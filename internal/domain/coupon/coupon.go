// Package coupon defines the issued-vs-flown match row produced by the
// coupon matcher.
package coupon

import (
	"strconv"
	"time"
)

// MatchStatus is the lifecycle of one ticket/coupon pair through matching.
type MatchStatus string

const (
	StatusMatched         MatchStatus = "matched"
	StatusUnmatchedIssued MatchStatus = "unmatched_issued"
	StatusUnmatchedFlown  MatchStatus = "unmatched_flown"
	StatusSuspense        MatchStatus = "suspense"
)

// MatchRow is keyed by (TicketNumber, CouponNumber).
type MatchRow struct {
	TicketNumber   string      `json:"ticket_number" db:"ticket_number"`
	CouponNumber   int         `json:"coupon_number" db:"coupon_number"`
	Status         MatchStatus `json:"status" db:"status"`
	IssuedEventRef *string     `json:"issued_event_ref,omitempty" db:"issued_event_ref"`
	FlownEventRef  *string     `json:"flown_event_ref,omitempty" db:"flown_event_ref"`
	MatchedAt      *time.Time  `json:"matched_at,omitempty" db:"matched_at"`
	DaysInSuspense int         `json:"days_in_suspense" db:"days_in_suspense"`
	Notes          string      `json:"notes,omitempty" db:"notes"`
}

// Key returns the (ticket_number, coupon_number) composite key.
func (r MatchRow) Key() string {
	return r.TicketNumber + "#" + strconv.Itoa(r.CouponNumber)
}
