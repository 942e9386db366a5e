package postgres

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/flightledger/core/internal/domain/coupon"
)

func TestCouponMatchStore_UpsertOnConflictUpdatesStatus(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewCouponMatchStore(ledger)

	mock.ExpectExec(`INSERT INTO coupon_matches`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	row, err := store.Upsert(context.Background(), coupon.MatchRow{
		TicketNumber: "t1",
		CouponNumber: 1,
		Status:       coupon.StatusMatched,
	})
	require.NoError(t, err)
	require.Equal(t, coupon.StatusMatched, row.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponMatchStore_GetSuspenseFiltersByAge(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewCouponMatchStore(ledger)

	rows := sqlmock.NewRows([]string{"id", "ticket_number", "coupon_number", "status", "issued_event_ref",
		"flown_event_ref", "matched_at", "days_in_suspense", "notes"}).
		AddRow("m1", "t1", 1, "suspense", "e1", nil, nil, 45, "")

	mock.ExpectQuery(`SELECT \* FROM coupon_matches\s+WHERE status IN \('suspense', 'unmatched_issued', 'unmatched_flown'\) AND days_in_suspense >= \$1`).
		WithArgs(30).
		WillReturnRows(rows)

	got, err := store.GetSuspense(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 45, got[0].DaysInSuspense)
	require.NoError(t, mock.ExpectationsWereMet())
}
