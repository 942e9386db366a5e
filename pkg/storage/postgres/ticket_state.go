package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/internal/domain/ticket"
	"github.com/flightledger/core/pkg/storage"
)

// TicketCurrentStateStore is the remote implementation of
// storage.TicketCurrentStateStore.
type TicketCurrentStateStore struct{ l *Ledger }

func NewTicketCurrentStateStore(l *Ledger) *TicketCurrentStateStore {
	return &TicketCurrentStateStore{l: l}
}

var _ storage.TicketCurrentStateStore = (*TicketCurrentStateStore)(nil)

type dbStateRow struct {
	TicketNumber     string          `db:"ticket_number"`
	Status           string          `db:"status"`
	CurrentAmount    sql.NullString  `db:"current_amount"`
	CouponStatuses   []byte          `db:"coupon_statuses"`
	LastModified     time.Time       `db:"last_modified"`
	EventCount       int             `db:"event_count"`
	LastEventType    sql.NullString  `db:"last_event_type"`
	PNR              sql.NullString  `db:"pnr"`
	PassengerName    sql.NullString  `db:"passenger_name"`
	MarketingCarrier sql.NullString  `db:"marketing_carrier"`
	OperatingCarrier sql.NullString  `db:"operating_carrier"`
	FlightNumber     sql.NullString  `db:"flight_number"`
	FlightDate       sql.NullString  `db:"flight_date"`
	Origin           sql.NullString  `db:"origin"`
	Destination      sql.NullString  `db:"destination"`
	Currency         sql.NullString  `db:"currency"`
}

func (r dbStateRow) toDomain() (ticket.State, error) {
	statuses := map[int]ticket.CouponStatus{}
	if len(r.CouponStatuses) > 0 {
		if err := json.Unmarshal(r.CouponStatuses, &statuses); err != nil {
			return ticket.State{}, err
		}
	}
	state := ticket.State{
		TicketNumber:     r.TicketNumber,
		Status:           ticket.Status(r.Status),
		CouponStatuses:   statuses,
		LastModified:     r.LastModified,
		EventCount:       r.EventCount,
		LastEventType:    event.Type(r.LastEventType.String),
		PNR:              r.PNR.String,
		PassengerName:    r.PassengerName.String,
		MarketingCarrier: r.MarketingCarrier.String,
		OperatingCarrier: r.OperatingCarrier.String,
		FlightNumber:     r.FlightNumber.String,
		FlightDate:       r.FlightDate.String,
		Origin:           r.Origin.String,
		Destination:      r.Destination.String,
		Currency:         r.Currency.String,
	}
	if r.CurrentAmount.Valid {
		amount, err := decimal.NewFromString(r.CurrentAmount.String)
		if err != nil {
			return ticket.State{}, err
		}
		state.CurrentAmount = &amount
	}
	return state, nil
}

func (s *TicketCurrentStateStore) Reset(ctx context.Context) error {
	_, err := s.l.db.ExecContext(ctx, `DELETE FROM ticket_current_state`)
	if err != nil {
		return ledgererrors.Backend("reset", err)
	}
	return nil
}

func (s *TicketCurrentStateStore) Upsert(ctx context.Context, state ticket.State) error {
	statusesJSON, err := json.Marshal(state.CouponStatuses)
	if err != nil {
		return ledgererrors.Backend("upsert", err)
	}
	var currentAmount sql.NullString
	if state.CurrentAmount != nil {
		currentAmount = sql.NullString{String: state.CurrentAmount.String(), Valid: true}
	}
	_, err = s.l.db.ExecContext(ctx, `
		INSERT INTO ticket_current_state
			(ticket_number, status, current_amount, coupon_statuses, last_modified, event_count, last_event_type,
			 pnr, passenger_name, marketing_carrier, operating_carrier, flight_number, flight_date, origin, destination, currency)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (ticket_number) DO UPDATE SET
			status = EXCLUDED.status,
			current_amount = EXCLUDED.current_amount,
			coupon_statuses = EXCLUDED.coupon_statuses,
			last_modified = EXCLUDED.last_modified,
			event_count = EXCLUDED.event_count,
			last_event_type = EXCLUDED.last_event_type,
			pnr = EXCLUDED.pnr,
			passenger_name = EXCLUDED.passenger_name,
			marketing_carrier = EXCLUDED.marketing_carrier,
			operating_carrier = EXCLUDED.operating_carrier,
			flight_number = EXCLUDED.flight_number,
			flight_date = EXCLUDED.flight_date,
			origin = EXCLUDED.origin,
			destination = EXCLUDED.destination,
			currency = EXCLUDED.currency
	`, state.TicketNumber, string(state.Status), currentAmount, statusesJSON, state.LastModified, state.EventCount,
		string(state.LastEventType), state.PNR, state.PassengerName, state.MarketingCarrier, state.OperatingCarrier,
		state.FlightNumber, state.FlightDate, state.Origin, state.Destination, state.Currency)
	if err != nil {
		return ledgererrors.Backend("upsert", err)
	}
	return nil
}

func (s *TicketCurrentStateStore) Get(ctx context.Context, ticketNumber string) (*ticket.State, error) {
	var row dbStateRow
	err := s.l.db.GetContext(ctx, &row, `SELECT * FROM ticket_current_state WHERE ticket_number = $1`, ticketNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ledgererrors.Backend("get", err)
	}
	state, err := row.toDomain()
	if err != nil {
		return nil, ledgererrors.Backend("get", err)
	}
	return &state, nil
}
