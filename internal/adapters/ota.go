package adapters

import (
	"encoding/json"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

// OTA normalizes partner booking webhooks. Bookings that omit event_type
// default to booking_modified; any value present is validated against the
// canonical enum.
type OTA struct{}

func NewOTA() *OTA { return &OTA{} }

type otaBooking struct {
	EventType     string          `json:"event_type"`
	TicketNumber  string          `json:"ticket_number"`
	PNR           string          `json:"pnr"`
	PassengerName string          `json:"passenger_name"`
	FlightNumber  string          `json:"flight_number"`
	FlightDate    string          `json:"flight_date"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	Currency      string          `json:"currency"`
	GrossAmount   json.RawMessage `json:"gross_amount"`
	NetAmount     json.RawMessage `json:"net_amount"`
	OTA           string          `json:"ota"`
	Status        string          `json:"status"`
}

func (a OTA) Parse(payload []byte) ([]event.Canonical, error) {
	bookings, err := decodeObjectOrArray[otaBooking](payload)
	if err != nil {
		return nil, ledgererrors.Parse("OTA", "malformed json payload").WithCause(err)
	}

	events := make([]event.Canonical, 0, len(bookings))
	for _, b := range bookings {
		eventType := b.EventType
		if eventType == "" {
			eventType = string(event.BookingModified)
		}
		if !event.ValidType(eventType) {
			return nil, ledgererrors.Parse("OTA", "unknown event_type: "+eventType)
		}
		if b.TicketNumber == "" {
			return nil, ledgererrors.Parse("OTA", "missing ticket_number")
		}

		gross, err := parseOptionalJSONDecimal("OTA", b.GrossAmount)
		if err != nil {
			return nil, err
		}
		net, err := parseOptionalJSONDecimal("OTA", b.NetAmount)
		if err != nil {
			return nil, err
		}

		events = append(events, event.Canonical{
			EventID:       newEventID(),
			OccurredAt:    newOccurredAt(),
			SourceSystem:  event.SourceOTA,
			EventType:     event.Type(eventType),
			TicketNumber:  b.TicketNumber,
			PNR:           b.PNR,
			PassengerName: b.PassengerName,
			FlightNumber:  b.FlightNumber,
			FlightDate:    b.FlightDate,
			Origin:        b.Origin,
			Destination:   b.Destination,
			Currency:      b.Currency,
			GrossAmount:   gross,
			NetAmount:     net,
			Metadata: map[string]any{
				"ota":                b.OTA,
				"status":             b.Status,
				"source_record_type": "ota_webhook_json",
			},
		})
	}
	return events, nil
}
