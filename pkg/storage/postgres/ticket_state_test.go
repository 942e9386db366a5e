package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/flightledger/core/internal/domain/ticket"
)

func TestTicketCurrentStateStore_GetNotFound(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewTicketCurrentStateStore(ledger)

	mock.ExpectQuery(`SELECT \* FROM ticket_current_state WHERE ticket_number = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"ticket_number", "status", "current_amount", "coupon_statuses", "last_modified", "event_count",
			"last_event_type", "pnr", "passenger_name", "marketing_carrier", "operating_carrier", "flight_number",
			"flight_date", "origin", "destination", "currency",
		}))

	state, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, state)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCurrentStateStore_UpsertOnConflict(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewTicketCurrentStateStore(ledger)

	mock.ExpectExec(`INSERT INTO ticket_current_state`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Upsert(context.Background(), ticket.State{
		TicketNumber: "t1",
		Status:       ticket.StatusIssued,
		LastModified: time.Now(),
		EventCount:   1,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
