// Package event defines the canonical event model shared by every stage of
// the FlightLedger pipeline: adapters produce it, the bus routes it, and the
// ticket store, matcher, recon engine, and settlement saga all consume it.
package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceSystem identifies the counterparty system that originated an event.
type SourceSystem string

const (
	SourcePSS       SourceSystem = "PSS"
	SourceDCS       SourceSystem = "DCS"
	SourceGDS       SourceSystem = "GDS"
	SourceOTA       SourceSystem = "OTA"
	SourceInterline SourceSystem = "INTERLINE"
)

// Type enumerates the canonical event types normalized from every source.
type Type string

const (
	TicketIssued    Type = "ticket_issued"
	TicketReissued  Type = "ticket_reissued"
	TicketVoided    Type = "ticket_voided"
	CouponFlown     Type = "coupon_flown"
	RefundRequested Type = "refund_requested"
	SettlementDue   Type = "settlement_due"
	BookingModified Type = "booking_modified"
	InterlineClaim  Type = "interline_claim"
)

// ValidType reports whether s is one of the eight canonical event type
// strings. Adapters use this to reject unknown event_type values early.
func ValidType(s string) bool {
	switch Type(s) {
	case TicketIssued, TicketReissued, TicketVoided, CouponFlown,
		RefundRequested, SettlementDue, BookingModified, InterlineClaim:
		return true
	}
	return false
}

// Canonical is the immutable, uniquely-identified record shared by every
// pipeline stage. Two instances with the same EventID represent the same
// logical event and must collapse to a single persisted row (I1).
type Canonical struct {
	EventID      string       `json:"event_id"`
	OccurredAt   time.Time    `json:"occurred_at"`
	SourceSystem SourceSystem `json:"source_system"`
	EventType    Type         `json:"event_type"`
	TicketNumber string       `json:"ticket_number"`
	CouponNumber *int         `json:"coupon_number,omitempty"`

	PNR               string `json:"pnr,omitempty"`
	PassengerName     string `json:"passenger_name,omitempty"`
	MarketingCarrier  string `json:"marketing_carrier,omitempty"`
	OperatingCarrier  string `json:"operating_carrier,omitempty"`
	FlightNumber      string `json:"flight_number,omitempty"`
	FlightDate        string `json:"flight_date,omitempty"`
	Origin            string `json:"origin,omitempty"`
	Destination       string `json:"destination,omitempty"`
	Currency          string `json:"currency,omitempty"`

	GrossAmount *decimal.Decimal `json:"gross_amount,omitempty"`
	NetAmount   *decimal.Decimal `json:"net_amount,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep-enough copy safe to hand to a caller without aliasing
// the Metadata map or amount pointers of the stored original.
func (c Canonical) Clone() Canonical {
	clone := c
	if c.CouponNumber != nil {
		v := *c.CouponNumber
		clone.CouponNumber = &v
	}
	if c.GrossAmount != nil {
		v := *c.GrossAmount
		clone.GrossAmount = &v
	}
	if c.NetAmount != nil {
		v := *c.NetAmount
		clone.NetAmount = &v
	}
	if c.Metadata != nil {
		clone.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}
