package adapters

import (
	"testing"

	"github.com/stretchr/testify/require"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

func TestOTA_DefaultsToBookingModified(t *testing.T) {
	payload := `{"ticket_number": "0123456789012", "pnr": "XYZ987"}`
	events, err := NewOTA().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, event.BookingModified, events[0].EventType)
}

func TestOTA_ValidatesExplicitEventType(t *testing.T) {
	payload := `{"event_type": "ticket_voided", "ticket_number": "0123456789012"}`
	events, err := NewOTA().Parse([]byte(payload))
	require.NoError(t, err)
	require.Equal(t, event.TicketVoided, events[0].EventType)
}

func TestOTA_RejectsUnknownEventType(t *testing.T) {
	payload := `{"event_type": "not_real", "ticket_number": "0123456789012"}`
	_, err := NewOTA().Parse([]byte(payload))
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindParse))
}

func TestOTA_ParsesArrayAndDecimalAmounts(t *testing.T) {
	payload := `[{"ticket_number": "A", "gross_amount": 120.5}, {"ticket_number": "B", "gross_amount": "80.25"}]`
	events, err := NewOTA().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "120.5", events[0].GrossAmount.String())
	require.Equal(t, "80.25", events[1].GrossAmount.String())
}
