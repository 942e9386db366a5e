package adapters

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

func TestGDS_ParsesRecordsUnderXPath(t *testing.T) {
	payload := `<batch><record>
		<ticket_number>0123456789012</ticket_number>
		<coupon_number>1</coupon_number>
		<currency>USD</currency>
		<gross_amount>100.00</gross_amount>
		<net_amount>90.00</net_amount>
		<gds>AMADEUS</gds>
		<settlement_week>2026-W03</settlement_week>
	</record></batch>`

	events, err := NewGDS().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	require.Equal(t, event.SettlementDue, e.EventType)
	require.Equal(t, event.SourceGDS, e.SourceSystem)
	require.True(t, e.GrossAmount.Equal(decimal.RequireFromString("100.00")))
	require.Equal(t, "AMADEUS", e.Metadata["gds"])
}

func TestGDS_MissingTicketNumberIsParseError(t *testing.T) {
	payload := `<batch><record><currency>USD</currency></record></batch>`
	_, err := NewGDS().Parse([]byte(payload))
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindParse))
}

func TestGDS_MalformedXMLIsParseError(t *testing.T) {
	_, err := NewGDS().Parse([]byte("<batch><record>"))
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindParse))
}
