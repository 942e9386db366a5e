// Package ticket defines the persisted, append-only event row and the
// derived projection replayed from it.
package ticket

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/flightledger/core/internal/domain/event"
)

// EventRow is the persisted form of a canonical event: append-only, never
// updated, unique on (TicketNumber, EventSequence) and on EventID.
type EventRow struct {
	EventID       string             `json:"event_id" db:"event_id"`
	TicketNumber  string             `json:"ticket_number" db:"ticket_number"`
	EventSequence int                `json:"event_sequence" db:"event_sequence"`
	OccurredAt    time.Time          `json:"occurred_at" db:"occurred_at"`
	SourceSystem  event.SourceSystem `json:"source_system" db:"source_system"`
	EventType     event.Type         `json:"event_type" db:"event_type"`
	CouponNumber  *int               `json:"coupon_number,omitempty" db:"coupon_number"`
	Payload       event.Canonical    `json:"payload" db:"payload"`
}

// CouponStatus is the last-seen status of one coupon on a ticket.
type CouponStatus string

const (
	CouponStatusIssued CouponStatus = "issued"
	CouponStatusFlown  CouponStatus = "flown"
)

// Status is the ticket-level lifecycle status.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusIssued   Status = "issued"
	StatusReissued Status = "reissued"
	StatusVoided   Status = "voided"
	StatusFlown    Status = "flown"
	StatusRefunded Status = "refunded"
	StatusModified Status = "modified"
)

// State is the projection derived by replaying a ticket's event history.
type State struct {
	TicketNumber     string               `json:"ticket_number"`
	Status           Status               `json:"status"`
	CurrentAmount    *decimal.Decimal     `json:"current_amount,omitempty"`
	CouponStatuses   map[int]CouponStatus `json:"coupon_statuses"`
	LastModified     time.Time            `json:"last_modified"`
	EventCount       int                  `json:"event_count"`
	LastEventType    event.Type           `json:"last_event_type"`
	PNR              string               `json:"pnr,omitempty"`
	PassengerName    string               `json:"passenger_name,omitempty"`
	MarketingCarrier string               `json:"marketing_carrier,omitempty"`
	OperatingCarrier string               `json:"operating_carrier,omitempty"`
	FlightNumber     string               `json:"flight_number,omitempty"`
	FlightDate       string               `json:"flight_date,omitempty"`
	Origin           string               `json:"origin,omitempty"`
	Destination      string               `json:"destination,omitempty"`
	Currency         string               `json:"currency,omitempty"`
}

// Clone returns a deep-enough copy safe to hand to a caller.
func (s State) Clone() State {
	clone := s
	if s.CurrentAmount != nil {
		v := *s.CurrentAmount
		clone.CurrentAmount = &v
	}
	if s.CouponStatuses != nil {
		clone.CouponStatuses = make(map[int]CouponStatus, len(s.CouponStatuses))
		for k, v := range s.CouponStatuses {
			clone.CouponStatuses[k] = v
		}
	}
	return clone
}
