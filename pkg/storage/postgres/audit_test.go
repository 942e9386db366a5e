package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/flightledger/core/internal/domain/audit"
)

func TestAuditStore_InsertAssignsIDWhenMissing(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewAuditStore(ledger)

	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec, err := store.Insert(context.Background(), audit.Record{
		Timestamp:     time.Now(),
		Action:        "coupon_matched",
		Component:     "matching",
		InputEventIDs: []string{"e1", "e2"},
		Detail:        map[string]any{"ticket_number": "t1"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditStore_GetByTicketOrdersByTimestamp(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewAuditStore(ledger)

	rows := sqlmock.NewRows([]string{"id", "timestamp", "action", "component", "ticket_number", "input_event_ids",
		"output_reference", "detail", "raw_source_hash"}).
		AddRow("a1", time.Now(), "coupon_matched", "matching", "t1", []byte(`["e1"]`), nil, []byte(`{}`), nil)

	mock.ExpectQuery(`SELECT \* FROM audit_log WHERE ticket_number = \$1 ORDER BY timestamp`).
		WithArgs("t1").
		WillReturnRows(rows)

	got, err := store.GetByTicket(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "a1", got[0].ID)
	require.Equal(t, []string{"e1"}, got[0].InputEventIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}
