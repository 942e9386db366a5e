package adapters

import (
	"testing"

	"github.com/stretchr/testify/require"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

func TestInterline_ParsesEnvelope(t *testing.T) {
	payload := `{"claims": [{"ticket_number": "0123456789012", "coupon_number": 1, "claim_amount": "75.00", "partner_carrier": "BA"}]}`
	events, err := NewInterline().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, event.InterlineClaim, events[0].EventType)
	require.Equal(t, "75", events[0].GrossAmount.String())
	require.Equal(t, "BA", events[0].Metadata["partner_carrier"])
}

func TestInterline_ParsesBareArray(t *testing.T) {
	payload := `[{"ticket_number": "A"}, {"ticket_number": "B"}]`
	events, err := NewInterline().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestInterline_MissingTicketNumberIsParseError(t *testing.T) {
	payload := `{"claims": [{"claim_amount": "10.00"}]}`
	_, err := NewInterline().Parse([]byte(payload))
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindParse))
}
