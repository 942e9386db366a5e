// Package recon defines the break classification and the persisted result
// row produced by the reconciliation engine.
package recon

import (
	"time"

	"github.com/shopspring/decimal"
)

// BreakType categorizes why a (ticket, coupon) pair failed reconciliation.
type BreakType string

const (
	BreakDuplicateLift      BreakType = "duplicate_lift"
	BreakTiming             BreakType = "timing"
	BreakMissingSettlement  BreakType = "missing_settlement"
	BreakFareMismatch       BreakType = "fare_mismatch"
)

// Severity is the assigned urgency of a break.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Status is whether the pair matched or broke.
type Status string

const (
	StatusMatched Status = "matched"
	StatusBreak   Status = "break"
)

// Resolution tracks how (or whether) a break was closed out.
type Resolution string

const (
	ResolutionAutoResolved     Resolution = "auto_resolved"
	ResolutionUnresolved       Resolution = "unresolved"
	ResolutionManuallyResolved Resolution = "manually_resolved"
)

// Classification is the outcome of classify_break's decision table.
type Classification struct {
	BreakType  *BreakType
	Severity   Severity
	Status     Status
	Resolution Resolution
}

// ResultRow is the persisted form of one reconciled (ticket, coupon) pair.
type ResultRow struct {
	ID              string           `json:"id" db:"id"`
	TicketNumber    string           `json:"ticket_number" db:"ticket_number"`
	CouponNumber    int              `json:"coupon_number" db:"coupon_number"`
	BreakType       *BreakType       `json:"break_type,omitempty" db:"break_type"`
	Severity        Severity         `json:"severity" db:"severity"`
	Status          Status           `json:"status" db:"status"`
	Resolution      Resolution       `json:"resolution" db:"resolution"`
	OurAmount       *decimal.Decimal `json:"our_amount,omitempty" db:"our_amount"`
	TheirAmount     *decimal.Decimal `json:"their_amount,omitempty" db:"their_amount"`
	Difference      *decimal.Decimal `json:"difference,omitempty" db:"difference"`
	ResolutionNotes *string          `json:"resolution_notes,omitempty" db:"resolution_notes"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Summary aggregates one run_full_recon() pass.
type Summary struct {
	TotalMatched     int            `json:"total_matched"`
	TotalBreaks      int            `json:"total_breaks"`
	BreaksByType     map[string]int `json:"breaks_by_type"`
	BreaksBySeverity map[string]int `json:"breaks_by_severity"`
}
