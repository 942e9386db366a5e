package adapters

import (
	"encoding/json"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

// DCS normalizes departure-control boarding records. Every record defaults
// to coupon_flown; there is no per-record event_type column.
type DCS struct{}

func NewDCS() *DCS { return &DCS{} }

type dcsRecord struct {
	TicketNumber string `json:"ticket_number"`
	CouponNumber *int   `json:"coupon_number"`
	PNR          string `json:"pnr"`
	FlightNumber string `json:"flight_number"`
	FlightDate   string `json:"flight_date"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	BoardedAt    string `json:"boarded_at"`
	Gate         string `json:"gate"`
}

func (a DCS) Parse(payload []byte) ([]event.Canonical, error) {
	records, err := decodeObjectOrArray[dcsRecord](payload)
	if err != nil {
		return nil, ledgererrors.Parse("DCS", "malformed json payload").WithCause(err)
	}

	events := make([]event.Canonical, 0, len(records))
	for _, r := range records {
		if r.TicketNumber == "" {
			return nil, ledgererrors.Parse("DCS", "missing ticket_number")
		}
		events = append(events, event.Canonical{
			EventID:      newEventID(),
			OccurredAt:   newOccurredAt(),
			SourceSystem: event.SourceDCS,
			EventType:    event.CouponFlown,
			TicketNumber: r.TicketNumber,
			CouponNumber: r.CouponNumber,
			PNR:          r.PNR,
			FlightNumber: r.FlightNumber,
			FlightDate:   r.FlightDate,
			Origin:       r.Origin,
			Destination:  r.Destination,
			Metadata: map[string]any{
				"boarded_at":         r.BoardedAt,
				"gate":               r.Gate,
				"source_record_type": "dcs_json",
			},
		})
	}
	return events, nil
}

// decodeObjectOrArray decodes payload as either a single JSON object or an
// array of objects, always returning a slice.
func decodeObjectOrArray[T any](payload []byte) ([]T, error) {
	trimmed := skipLeadingSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []T
		if err := json.Unmarshal(payload, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var single T
	if err := json.Unmarshal(payload, &single); err != nil {
		return nil, err
	}
	return []T{single}, nil
}

func skipLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return b[i:]
}
