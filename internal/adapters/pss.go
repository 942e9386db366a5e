package adapters

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

// PSS normalizes the reservation-system CSV export. Every row carries its
// own event_type column; rows never fall back to a fixed default.
type PSS struct{}

func NewPSS() *PSS { return &PSS{} }

func (a PSS) Parse(payload []byte) ([]event.Canonical, error) {
	reader := csv.NewReader(strings.NewReader(string(payload)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, ledgererrors.Parse("PSS", "missing header row").WithCause(err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}

	var events []event.Canonical
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ledgererrors.Parse("PSS", "malformed csv row").WithCause(err)
		}

		get := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		eventType := get("event_type")
		if !event.ValidType(eventType) {
			return nil, ledgererrors.Parse("PSS", "unknown event_type: "+eventType)
		}
		ticketNumber := get("ticket_number")
		if ticketNumber == "" {
			return nil, ledgererrors.Parse("PSS", "missing ticket_number")
		}

		var couponNumber *int
		if raw := get("coupon_number"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return nil, ledgererrors.Parse("PSS", "invalid coupon_number: "+raw).WithCause(err)
			}
			couponNumber = &v
		}

		gross, err := parseOptionalDecimal("PSS", get("gross_amount"))
		if err != nil {
			return nil, err
		}
		net, err := parseOptionalDecimal("PSS", get("net_amount"))
		if err != nil {
			return nil, err
		}

		events = append(events, event.Canonical{
			EventID:          newEventID(),
			OccurredAt:       newOccurredAt(),
			SourceSystem:     event.SourcePSS,
			EventType:        event.Type(eventType),
			TicketNumber:     ticketNumber,
			CouponNumber:     couponNumber,
			PNR:              get("pnr"),
			PassengerName:    get("passenger_name"),
			MarketingCarrier: get("marketing_carrier"),
			OperatingCarrier: get("operating_carrier"),
			FlightNumber:     get("flight_number"),
			FlightDate:       get("flight_date"),
			Origin:           get("origin"),
			Destination:      get("destination"),
			Currency:         get("currency"),
			GrossAmount:      gross,
			NetAmount:        net,
			Metadata: map[string]any{
				"source_record_type": "pss_csv",
				"sales_channel":      get("sales_channel"),
			},
		})
	}
	return events, nil
}

// parseOptionalDecimal coerces an empty cell to nil, never to zero.
func parseOptionalDecimal(source, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, ledgererrors.Parse(source, "invalid decimal: "+raw).WithCause(err)
	}
	return &v, nil
}
