package adapters

import (
	"testing"

	"github.com/stretchr/testify/require"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

func TestDCS_WrapsSingleObjectIntoList(t *testing.T) {
	payload := `{"ticket_number": "0123456789012", "coupon_number": 2, "gate": "B12"}`
	events, err := NewDCS().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, event.CouponFlown, events[0].EventType)
	require.Equal(t, event.SourceDCS, events[0].SourceSystem)
	require.Equal(t, 2, *events[0].CouponNumber)
	require.Equal(t, "B12", events[0].Metadata["gate"])
}

func TestDCS_ParsesArray(t *testing.T) {
	payload := `[{"ticket_number": "A"}, {"ticket_number": "B"}]`
	events, err := NewDCS().Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestDCS_MissingTicketNumberIsParseError(t *testing.T) {
	payload := `{"gate": "B12"}`
	_, err := NewDCS().Parse([]byte(payload))
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindParse))
}

func TestDCS_MalformedPayloadIsParseError(t *testing.T) {
	_, err := NewDCS().Parse([]byte("not json"))
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindParse))
}
