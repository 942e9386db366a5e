package adapters

import (
	"encoding/xml"
	"strconv"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

// GDS normalizes agent-settlement XML batches. Every record defaults to
// settlement_due.
type GDS struct{}

func NewGDS() *GDS { return &GDS{} }

type gdsBatch struct {
	Records []gdsRecord `xml:"record"`
}

type gdsRecord struct {
	TicketNumber   string `xml:"ticket_number"`
	CouponNumber   string `xml:"coupon_number"`
	Currency       string `xml:"currency"`
	GrossAmount    string `xml:"gross_amount"`
	NetAmount      string `xml:"net_amount"`
	GDS            string `xml:"gds"`
	SettlementWeek string `xml:"settlement_week"`
}

func (a GDS) Parse(payload []byte) ([]event.Canonical, error) {
	var batch gdsBatch
	if err := xml.Unmarshal(payload, &batch); err != nil {
		return nil, ledgererrors.Parse("GDS", "malformed xml payload").WithCause(err)
	}

	events := make([]event.Canonical, 0, len(batch.Records))
	for _, r := range batch.Records {
		if r.TicketNumber == "" {
			return nil, ledgererrors.Parse("GDS", "missing ticket_number")
		}

		var couponNumber *int
		if r.CouponNumber != "" {
			v, err := strconv.Atoi(r.CouponNumber)
			if err != nil {
				return nil, ledgererrors.Parse("GDS", "invalid coupon_number: "+r.CouponNumber).WithCause(err)
			}
			couponNumber = &v
		}

		gross, err := parseOptionalDecimal("GDS", r.GrossAmount)
		if err != nil {
			return nil, err
		}
		net, err := parseOptionalDecimal("GDS", r.NetAmount)
		if err != nil {
			return nil, err
		}

		events = append(events, event.Canonical{
			EventID:      newEventID(),
			OccurredAt:   newOccurredAt(),
			SourceSystem: event.SourceGDS,
			EventType:    event.SettlementDue,
			TicketNumber: r.TicketNumber,
			CouponNumber: couponNumber,
			Currency:     r.Currency,
			GrossAmount:  gross,
			NetAmount:    net,
			Metadata: map[string]any{
				"gds":                r.GDS,
				"settlement_week":    r.SettlementWeek,
				"source_record_type": "gds_xml",
			},
		})
	}
	return events, nil
}
