// Package ticketstore is the append-only ticket event history and its
// replayed projection. Every event is persisted exactly once per event_id;
// the current and as-of projections are always derived by replaying that
// history in event_sequence order, never patched in place.
package ticketstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/internal/domain/ticket"
	"github.com/flightledger/core/pkg/logger"
	"github.com/flightledger/core/pkg/storage"
)

// Store is the ticket lifecycle store: append-only event history plus the
// current-state projection cache.
type Store struct {
	events storage.TicketEventStore
	state  storage.TicketCurrentStateStore
	log    *logger.Logger

	// appendMu serializes append() end-to-end (find-by-id, assign sequence,
	// insert, reproject) so two concurrent appends for the same ticket
	// cannot race between the sequence read and the insert.
	appendMu sync.Mutex
}

func New(events storage.TicketEventStore, state storage.TicketCurrentStateStore, log *logger.Logger) *Store {
	return &Store{events: events, state: state, log: log.Named("ticketstore")}
}

func (s *Store) Reset(ctx context.Context) error {
	if err := s.events.Reset(ctx); err != nil {
		return err
	}
	return s.state.Reset(ctx)
}

// Append persists ev if its event_id has not been seen before, then
// reprojects the ticket's current state from its full history. Re-appending
// an already-seen event_id is a silent no-op (I1).
func (s *Store) Append(ctx context.Context, ev event.Canonical) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	existing, err := s.events.FindByEventID(ctx, ev.EventID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	sequence, err := s.events.NextSequence(ctx, ev.TicketNumber)
	if err != nil {
		return err
	}

	row := ticket.EventRow{
		EventID:       ev.EventID,
		TicketNumber:  ev.TicketNumber,
		EventSequence: sequence,
		OccurredAt:    ev.OccurredAt,
		SourceSystem:  ev.SourceSystem,
		EventType:     ev.EventType,
		CouponNumber:  ev.CouponNumber,
		Payload:       ev,
	}
	if _, err := s.events.Insert(ctx, row); err != nil {
		return err
	}

	rows, err := s.events.GetByTicket(ctx, ev.TicketNumber)
	if err != nil {
		return err
	}
	projected := replay(ev.TicketNumber, rows)
	if err := s.state.Upsert(ctx, projected); err != nil {
		return err
	}

	s.log.WithFields(map[string]interface{}{
		"ticket_number": ev.TicketNumber,
		"event_type":    ev.EventType,
		"sequence":      sequence,
	}).Debugw("event appended")
	return nil
}

// GetHistory returns a ticket's full event history in sequence order.
func (s *Store) GetHistory(ctx context.Context, ticketNumber string) ([]event.Canonical, error) {
	rows, err := s.events.GetByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	return payloads(rows), nil
}

// GetCurrentState returns the cached projection, falling back to a full
// replay if no snapshot has been written yet (a ticket with zero events).
func (s *Store) GetCurrentState(ctx context.Context, ticketNumber string) (ticket.State, error) {
	snapshot, err := s.state.Get(ctx, ticketNumber)
	if err != nil {
		return ticket.State{}, err
	}
	if snapshot != nil {
		return *snapshot, nil
	}
	rows, err := s.events.GetByTicket(ctx, ticketNumber)
	if err != nil {
		return ticket.State{}, err
	}
	return replay(ticketNumber, rows), nil
}

// GetStateAt replays only the events at or before asOf, never touching the
// cached current-state snapshot.
func (s *Store) GetStateAt(ctx context.Context, ticketNumber string, asOf time.Time) (ticket.State, error) {
	rows, err := s.events.GetByTicketAt(ctx, ticketNumber, asOf)
	if err != nil {
		return ticket.State{}, err
	}
	return replay(ticketNumber, rows), nil
}

// GetEventsByType returns every persisted row of the given types, across all
// tickets. Returning rows rather than bare payloads lets callers (the coupon
// matcher) build a stable reference back to the persisted position
// (ticket_number, event_sequence) without a second lookup.
func (s *Store) GetEventsByType(ctx context.Context, types []event.Type) ([]ticket.EventRow, error) {
	return s.events.GetByEventTypes(ctx, types)
}

// AllEvents returns every persisted event across every ticket.
func (s *Store) AllEvents(ctx context.Context) ([]event.Canonical, error) {
	rows, err := s.events.AllRows(ctx)
	if err != nil {
		return nil, err
	}
	return payloads(rows), nil
}

func payloads(rows []ticket.EventRow) []event.Canonical {
	out := make([]event.Canonical, len(rows))
	for i, r := range rows {
		out[i] = r.Payload
	}
	return out
}

// Ref formats the stable (ticket_number, event_sequence) reference used by
// CouponMatchRow.IssuedEventRef/FlownEventRef.
func Ref(row ticket.EventRow) string {
	return row.TicketNumber + "#" + strconv.Itoa(row.EventSequence)
}

// replay applies the exact five-step projection rule, in event_sequence
// order, to derive a ticket's state from its history.
func replay(ticketNumber string, rows []ticket.EventRow) ticket.State {
	state := ticket.State{TicketNumber: ticketNumber, Status: ticket.StatusUnknown, CouponStatuses: map[int]ticket.CouponStatus{}}
	for _, row := range rows {
		ev := row.Payload

		state.EventCount++
		state.LastEventType = ev.EventType
		state.LastModified = ev.OccurredAt

		if ev.PNR != "" {
			state.PNR = ev.PNR
		}
		if ev.PassengerName != "" {
			state.PassengerName = ev.PassengerName
		}
		if ev.MarketingCarrier != "" {
			state.MarketingCarrier = ev.MarketingCarrier
		}
		if ev.OperatingCarrier != "" {
			state.OperatingCarrier = ev.OperatingCarrier
		}
		if ev.FlightNumber != "" {
			state.FlightNumber = ev.FlightNumber
		}
		if ev.FlightDate != "" {
			state.FlightDate = ev.FlightDate
		}
		if ev.Origin != "" {
			state.Origin = ev.Origin
		}
		if ev.Destination != "" {
			state.Destination = ev.Destination
		}
		if ev.Currency != "" {
			state.Currency = ev.Currency
		}
		if ev.GrossAmount != nil {
			amount := *ev.GrossAmount
			state.CurrentAmount = &amount
		}

		if ev.CouponNumber != nil && (ev.EventType == event.TicketIssued || ev.EventType == event.TicketReissued) {
			state.CouponStatuses[*ev.CouponNumber] = ticket.CouponStatusIssued
		}

		switch ev.EventType {
		case event.TicketIssued:
			state.Status = ticket.StatusIssued
		case event.TicketReissued:
			state.Status = ticket.StatusReissued
		case event.TicketVoided:
			state.Status = ticket.StatusVoided
		case event.CouponFlown:
			state.Status = ticket.StatusFlown
			if ev.CouponNumber != nil {
				state.CouponStatuses[*ev.CouponNumber] = ticket.CouponStatusFlown
			}
		case event.RefundRequested:
			state.Status = ticket.StatusRefunded
		case event.BookingModified:
			if state.Status == ticket.StatusUnknown {
				state.Status = ticket.StatusModified
			}
		}
	}
	return state
}
