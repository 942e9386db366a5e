package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/internal/domain/ticket"
	"github.com/flightledger/core/pkg/storage"
)

// TicketEventStore is the remote implementation of storage.TicketEventStore.
type TicketEventStore struct{ l *Ledger }

func NewTicketEventStore(l *Ledger) *TicketEventStore { return &TicketEventStore{l: l} }

var _ storage.TicketEventStore = (*TicketEventStore)(nil)

type dbEventRow struct {
	EventID       string        `db:"event_id"`
	TicketNumber  string        `db:"ticket_number"`
	EventSequence int           `db:"event_sequence"`
	OccurredAt    time.Time     `db:"occurred_at"`
	SourceSystem  string        `db:"source_system"`
	EventType     string        `db:"event_type"`
	CouponNumber  sql.NullInt64 `db:"coupon_number"`
	Payload       []byte        `db:"payload"`
}

func (r dbEventRow) toDomain() (ticket.EventRow, error) {
	var payload event.Canonical
	if err := json.Unmarshal(r.Payload, &payload); err != nil {
		return ticket.EventRow{}, err
	}
	out := ticket.EventRow{
		EventID:       r.EventID,
		TicketNumber:  r.TicketNumber,
		EventSequence: r.EventSequence,
		OccurredAt:    r.OccurredAt,
		SourceSystem:  event.SourceSystem(r.SourceSystem),
		EventType:     event.Type(r.EventType),
		Payload:       payload,
	}
	if r.CouponNumber.Valid {
		v := int(r.CouponNumber.Int64)
		out.CouponNumber = &v
	}
	return out, nil
}

func (s *TicketEventStore) Reset(ctx context.Context) error {
	_, err := s.l.db.ExecContext(ctx, `DELETE FROM ticket_events`)
	if err != nil {
		return ledgererrors.Backend("reset", err)
	}
	return nil
}

func (s *TicketEventStore) NextSequence(ctx context.Context, ticketNumber string) (int, error) {
	var max sql.NullInt64
	err := s.l.db.GetContext(ctx, &max,
		`SELECT MAX(event_sequence) FROM ticket_events WHERE ticket_number = $1`, ticketNumber)
	if err != nil {
		return 0, ledgererrors.Backend("next_sequence", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

func (s *TicketEventStore) FindByEventID(ctx context.Context, eventID string) (*ticket.EventRow, error) {
	var row dbEventRow
	err := s.l.db.GetContext(ctx, &row, `SELECT * FROM ticket_events WHERE event_id = $1`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ledgererrors.Backend("find_by_event_id", err)
	}
	out, err := row.toDomain()
	if err != nil {
		return nil, ledgererrors.Backend("find_by_event_id", err)
	}
	return &out, nil
}

func (s *TicketEventStore) Insert(ctx context.Context, row ticket.EventRow) (ticket.EventRow, error) {
	payload, err := json.Marshal(row.Payload)
	if err != nil {
		return ticket.EventRow{}, ledgererrors.Backend("insert", err)
	}
	var couponNumber sql.NullInt64
	if row.CouponNumber != nil {
		couponNumber = sql.NullInt64{Int64: int64(*row.CouponNumber), Valid: true}
	}
	_, err = s.l.db.ExecContext(ctx, `
		INSERT INTO ticket_events
			(event_id, ticket_number, event_sequence, occurred_at, source_system, event_type, coupon_number, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, row.EventID, row.TicketNumber, row.EventSequence, row.OccurredAt, string(row.SourceSystem), string(row.EventType), couponNumber, payload)
	if err != nil {
		return ticket.EventRow{}, ledgererrors.Conflict(row.TicketNumber).WithCause(err)
	}
	return row, nil
}

func (s *TicketEventStore) GetByTicket(ctx context.Context, ticketNumber string) ([]ticket.EventRow, error) {
	var rows []dbEventRow
	err := s.l.db.SelectContext(ctx, &rows,
		`SELECT * FROM ticket_events WHERE ticket_number = $1 ORDER BY event_sequence`, ticketNumber)
	if err != nil {
		return nil, ledgererrors.Backend("get_by_ticket", err)
	}
	return toDomainEventRows(rows)
}

func (s *TicketEventStore) GetByTicketAt(ctx context.Context, ticketNumber string, asOf time.Time) ([]ticket.EventRow, error) {
	var rows []dbEventRow
	err := s.l.db.SelectContext(ctx, &rows,
		`SELECT * FROM ticket_events WHERE ticket_number = $1 AND occurred_at <= $2 ORDER BY event_sequence`,
		ticketNumber, asOf)
	if err != nil {
		return nil, ledgererrors.Backend("get_by_ticket_at", err)
	}
	return toDomainEventRows(rows)
}

func (s *TicketEventStore) GetByEventTypes(ctx context.Context, types []event.Type) ([]ticket.EventRow, error) {
	if len(types) == 0 {
		return nil, nil
	}
	strTypes := make([]string, len(types))
	for i, t := range types {
		strTypes[i] = string(t)
	}
	query, args, err := sqlxIn(`SELECT * FROM ticket_events WHERE event_type IN (?)`, strTypes)
	if err != nil {
		return nil, ledgererrors.Backend("get_by_event_types", err)
	}
	var rows []dbEventRow
	if err := s.l.db.SelectContext(ctx, &rows, s.l.db.Rebind(query), args...); err != nil {
		return nil, ledgererrors.Backend("get_by_event_types", err)
	}
	return toDomainEventRows(rows)
}

func (s *TicketEventStore) AllRows(ctx context.Context) ([]ticket.EventRow, error) {
	var rows []dbEventRow
	err := s.l.db.SelectContext(ctx, &rows, `SELECT * FROM ticket_events`)
	if err != nil {
		return nil, ledgererrors.Backend("all_rows", err)
	}
	return toDomainEventRows(rows)
}

func toDomainEventRows(rows []dbEventRow) ([]ticket.EventRow, error) {
	out := make([]ticket.EventRow, 0, len(rows))
	for _, r := range rows {
		row, err := r.toDomain()
		if err != nil {
			return nil, ledgererrors.Backend("decode_payload", err)
		}
		out = append(out, row)
	}
	return out, nil
}
