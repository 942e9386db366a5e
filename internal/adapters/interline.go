package adapters

import (
	"encoding/json"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

// Interline normalizes partner-carrier interline claim batches. claim_amount
// maps to gross_amount; every record defaults to interline_claim.
type Interline struct{}

func NewInterline() *Interline { return &Interline{} }

type interlineEnvelope struct {
	Claims []interlineClaim `json:"claims"`
}

type interlineClaim struct {
	TicketNumber   string          `json:"ticket_number"`
	CouponNumber   *int            `json:"coupon_number"`
	Currency       string          `json:"currency"`
	ClaimAmount    json.RawMessage `json:"claim_amount"`
	PartnerCarrier string          `json:"partner_carrier"`
	ClaimID        string          `json:"claim_id"`
	ClaimStatus    string          `json:"claim_status"`
}

func (a Interline) Parse(payload []byte) ([]event.Canonical, error) {
	claims, err := decodeClaims(payload)
	if err != nil {
		return nil, ledgererrors.Parse("INTERLINE", "malformed json payload").WithCause(err)
	}

	events := make([]event.Canonical, 0, len(claims))
	for _, c := range claims {
		if c.TicketNumber == "" {
			return nil, ledgererrors.Parse("INTERLINE", "missing ticket_number")
		}

		gross, err := parseOptionalJSONDecimal("INTERLINE", c.ClaimAmount)
		if err != nil {
			return nil, err
		}

		events = append(events, event.Canonical{
			EventID:      newEventID(),
			OccurredAt:   newOccurredAt(),
			SourceSystem: event.SourceInterline,
			EventType:    event.InterlineClaim,
			TicketNumber: c.TicketNumber,
			CouponNumber: c.CouponNumber,
			Currency:     c.Currency,
			GrossAmount:  gross,
			Metadata: map[string]any{
				"partner_carrier":    c.PartnerCarrier,
				"claim_id":           c.ClaimID,
				"claim_status":       c.ClaimStatus,
				"source_record_type": "interline_rest_json",
			},
		})
	}
	return events, nil
}

// decodeClaims accepts either {"claims": [...]}  or a bare claim array.
func decodeClaims(payload []byte) ([]interlineClaim, error) {
	trimmed := skipLeadingSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []interlineClaim
		if err := json.Unmarshal(payload, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var envelope interlineEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}
	return envelope.Claims, nil
}
