package adapters

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

func TestPSS_ParsesHappyPath(t *testing.T) {
	payload := "event_type,ticket_number,coupon_number,pnr,passenger_name,marketing_carrier,operating_carrier,flight_number,flight_date,origin,destination,currency,gross_amount,net_amount,sales_channel\n" +
		"ticket_issued,0123456789012,1,ABC123,JANE DOE,AA,AA,100,2026-01-15,JFK,LAX,USD,450.00,400.00,direct\n"

	events, err := NewPSS().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	require.Equal(t, event.SourcePSS, e.SourceSystem)
	require.Equal(t, event.TicketIssued, e.EventType)
	require.Equal(t, "0123456789012", e.TicketNumber)
	require.Equal(t, 1, *e.CouponNumber)
	require.True(t, e.GrossAmount.Equal(decimal.RequireFromString("450.00")))
	require.Equal(t, "direct", e.Metadata["sales_channel"])
	require.NotEmpty(t, e.EventID)
}

func TestPSS_EmptyOptionalCellsCoerceToNil(t *testing.T) {
	payload := "event_type,ticket_number,coupon_number,gross_amount,net_amount\n" +
		"ticket_issued,0123456789012,,,\n"

	events, err := NewPSS().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Nil(t, events[0].CouponNumber)
	require.Nil(t, events[0].GrossAmount)
	require.Nil(t, events[0].NetAmount)
}

func TestPSS_UnknownEventTypeIsParseError(t *testing.T) {
	payload := "event_type,ticket_number\nbogus_type,0123456789012\n"
	_, err := NewPSS().Parse([]byte(payload))
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindParse))
}

func TestPSS_MissingTicketNumberIsParseError(t *testing.T) {
	payload := "event_type,ticket_number\nticket_issued,\n"
	_, err := NewPSS().Parse([]byte(payload))
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindParse))
}
