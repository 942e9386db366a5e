package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/dagrun"
)

func TestDagRunStore_GetNotFound(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewDagRunStore(ledger)

	mock.ExpectQuery(`SELECT \* FROM dag_runs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "dag_name", "status", "started_at", "ended_at"}))

	run, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, run)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDagRunStore_InsertThenGet(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewDagRunStore(ledger)

	mock.ExpectExec(`INSERT INTO dag_runs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run, err := store.Insert(context.Background(), dagrun.Run{
		DAGName:   "month_end",
		Status:    dagrun.StatusRunning,
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRunStore_GetByRunFiltersByRunID(t *testing.T) {
	ledger, mock := newMockLedger(t)
	store := NewTaskRunStore(ledger)

	rows := sqlmock.NewRows([]string{"id", "run_id", "task_name", "status", "result", "error_message", "started_at", "ended_at"}).
		AddRow("tr1", "run1", "match_coupons", "succeeded", nil, nil, time.Now(), time.Now())

	mock.ExpectQuery(`SELECT \* FROM task_runs WHERE run_id = \$1`).
		WithArgs("run1").
		WillReturnRows(rows)

	got, err := store.GetByRun(context.Background(), "run1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, dagrun.StatusSucceeded, got[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
