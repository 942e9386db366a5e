package bus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flightledger/core/internal/domain/event"
)

func TestTopicFor(t *testing.T) {
	cases := map[event.Type]string{
		event.TicketIssued:    TopicTicketIssued,
		event.TicketReissued:  TopicTicketIssued,
		event.TicketVoided:    TopicTicketIssued,
		event.CouponFlown:     TopicCouponFlown,
		event.RefundRequested: TopicRefundRequested,
		event.SettlementDue:   TopicSettlementDue,
		event.InterlineClaim:  TopicSettlementDue,
		event.BookingModified: TopicBookingModified,
	}
	for eventType, wantTopic := range cases {
		topic, ok := TopicFor(eventType)
		require.True(t, ok)
		require.Equal(t, wantTopic, topic)
	}

	_, ok := TopicFor(event.Type("bogus"))
	require.False(t, ok)
}
