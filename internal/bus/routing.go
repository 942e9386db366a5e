// Package bus routes canonical events to topics and fans them out to one or
// more sinks, isolating a failing sink from the rest.
package bus

import "github.com/flightledger/core/internal/domain/event"

const (
	TopicTicketIssued    = "ticket.issued"
	TopicCouponFlown     = "coupon.flown"
	TopicRefundRequested = "refund.requested"
	TopicSettlementDue   = "settlement.due"
	TopicBookingModified = "booking.modified"
)

// topicMap is the wire-stable event_type → topic assignment.
var topicMap = map[event.Type]string{
	event.TicketIssued:    TopicTicketIssued,
	event.TicketReissued:  TopicTicketIssued,
	event.TicketVoided:    TopicTicketIssued,
	event.CouponFlown:     TopicCouponFlown,
	event.RefundRequested: TopicRefundRequested,
	event.SettlementDue:   TopicSettlementDue,
	event.InterlineClaim:  TopicSettlementDue,
	event.BookingModified: TopicBookingModified,
}

// TopicFor resolves the topic for an event type. Returns false for an
// event_type outside the canonical enum.
func TopicFor(t event.Type) (string, bool) {
	topic, ok := topicMap[t]
	return topic, ok
}
