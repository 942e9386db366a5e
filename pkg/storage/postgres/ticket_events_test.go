package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/internal/domain/ticket"
)

func newMockLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLedgerFromDB(db), mock
}

func TestTicketEventStore_NextSequenceEmptyHistoryStartsAtOne(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewTicketEventStore(ledger)

	mock.ExpectQuery(`SELECT MAX\(event_sequence\) FROM ticket_events WHERE ticket_number = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	seq, err := store.NextSequence(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, 1, seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketEventStore_InsertDuplicateSequenceIsConflict(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewTicketEventStore(ledger)

	row := ticket.EventRow{
		EventID:       "e1",
		TicketNumber:  "t1",
		EventSequence: 1,
		OccurredAt:    time.Now(),
		EventType:     event.TicketIssued,
		Payload:       event.Canonical{EventID: "e1", EventType: event.TicketIssued},
	}

	mock.ExpectExec(`INSERT INTO ticket_events`).
		WillReturnError(sqlmock.ErrCancelled)

	_, err := store.Insert(context.Background(), row)
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketEventStore_GetByTicketOrdersBySequence(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewTicketEventStore(ledger)

	payload, _ := json.Marshal(event.Canonical{EventID: "e1", EventType: event.TicketIssued})
	rows := sqlmock.NewRows([]string{"event_id", "ticket_number", "event_sequence", "occurred_at", "source_system", "event_type", "coupon_number", "payload"}).
		AddRow("e1", "t1", 1, time.Now(), "pss_csv", "ticket_issued", nil, payload)

	mock.ExpectQuery(`SELECT \* FROM ticket_events WHERE ticket_number = \$1 ORDER BY event_sequence`).
		WithArgs("t1").
		WillReturnRows(rows)

	got, err := store.GetByTicket(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "e1", got[0].EventID)
	require.NoError(t, mock.ExpectationsWereMet())
}
