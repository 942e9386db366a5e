// Package settlement defines the interline settlement saga row and its
// append-only step log.
package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is a node in the settlement saga state machine.
type Status string

const (
	StatusCalculated  Status = "calculated"
	StatusValidated   Status = "validated"
	StatusSubmitted   Status = "submitted"
	StatusConfirmed   Status = "confirmed"
	StatusDisputed    Status = "disputed"
	StatusReconciled  Status = "reconciled"
	StatusCompensated Status = "compensated"
)

// Action is a saga transition name. Each one maps to one allowed edge out of
// the current status.
type Action string

const (
	ActionCalculate Action = "calculate"
	ActionValidate  Action = "validate"
	ActionSubmit    Action = "submit"
	ActionConfirm   Action = "confirm"
	ActionReconcile Action = "reconcile"
	ActionCompensate Action = "compensate"
)

// Settlement is one interline settlement under saga control.
type Settlement struct {
	ID              string           `json:"id" db:"id"`
	TicketNumber    string           `json:"ticket_number" db:"ticket_number"`
	CouponNumber    int              `json:"coupon_number" db:"coupon_number"`
	Status          Status           `json:"status" db:"status"`
	OurAmount       *decimal.Decimal `json:"our_amount,omitempty" db:"our_amount"`
	TheirAmount     *decimal.Decimal `json:"their_amount,omitempty" db:"their_amount"`
	Currency        string           `json:"currency" db:"currency"`
	CounterpartyType string          `json:"counterparty_type" db:"counterparty_type"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// SagaStep is one append-only entry in a settlement's transition log.
type SagaStep struct {
	ID           string         `json:"id" db:"id"`
	SettlementID string         `json:"settlement_id" db:"settlement_id"`
	Action       Action         `json:"action" db:"action"`
	FromStatus   Status         `json:"from_status" db:"from_status"`
	ToStatus     Status         `json:"to_status" db:"to_status"`
	Detail       map[string]any `json:"detail,omitempty" db:"detail"`
	Timestamp    time.Time      `json:"timestamp" db:"timestamp"`
}
