package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/dagrun"
	"github.com/flightledger/core/pkg/storage"
)

// DagRunStore is the remote implementation of storage.DagRunStore.
type DagRunStore struct{ l *Ledger }

func NewDagRunStore(l *Ledger) *DagRunStore { return &DagRunStore{l: l} }

var _ storage.DagRunStore = (*DagRunStore)(nil)

type dbDagRunRow struct {
	ID        string       `db:"id"`
	DAGName   string       `db:"dag_name"`
	Status    string       `db:"status"`
	StartedAt time.Time    `db:"started_at"`
	EndedAt   sql.NullTime `db:"ended_at"`
}

func (r dbDagRunRow) toDomain() dagrun.Run {
	run := dagrun.Run{ID: r.ID, DAGName: r.DAGName, Status: dagrun.Status(r.Status), StartedAt: r.StartedAt}
	if r.EndedAt.Valid {
		run.EndedAt = &r.EndedAt.Time
	}
	return run
}

func (s *DagRunStore) Insert(ctx context.Context, run dagrun.Run) (dagrun.Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.l.db.ExecContext(ctx, `
		INSERT INTO dag_runs (id, dag_name, status, started_at, ended_at) VALUES ($1,$2,$3,$4,$5)
	`, run.ID, run.DAGName, string(run.Status), run.StartedAt, run.EndedAt)
	if err != nil {
		return dagrun.Run{}, ledgererrors.Backend("insert", err)
	}
	return run, nil
}

func (s *DagRunStore) UpdateStatus(ctx context.Context, runID string, status dagrun.Status, endedAt *time.Time) error {
	result, err := s.l.db.ExecContext(ctx,
		`UPDATE dag_runs SET status = $1, ended_at = COALESCE($2, ended_at) WHERE id = $3`,
		string(status), endedAt, runID)
	if err != nil {
		return ledgererrors.Backend("update_status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return ledgererrors.Backend("update_status", err)
	}
	if n == 0 {
		return ledgererrors.NotFound("dag_run", runID)
	}
	return nil
}

func (s *DagRunStore) Get(ctx context.Context, runID string) (*dagrun.Run, error) {
	var row dbDagRunRow
	err := s.l.db.GetContext(ctx, &row, `SELECT * FROM dag_runs WHERE id = $1`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ledgererrors.Backend("get", err)
	}
	run := row.toDomain()
	return &run, nil
}

// TaskRunStore is the remote implementation of storage.TaskRunStore.
type TaskRunStore struct{ l *Ledger }

func NewTaskRunStore(l *Ledger) *TaskRunStore { return &TaskRunStore{l: l} }

var _ storage.TaskRunStore = (*TaskRunStore)(nil)

type dbTaskRunRow struct {
	ID           string         `db:"id"`
	RunID        string         `db:"run_id"`
	TaskName     string         `db:"task_name"`
	Status       string         `db:"status"`
	Result       []byte         `db:"result"`
	ErrorMessage sql.NullString `db:"error_message"`
	StartedAt    sql.NullTime   `db:"started_at"`
	EndedAt      sql.NullTime   `db:"ended_at"`
}

func (r dbTaskRunRow) toDomain() (dagrun.TaskRun, error) {
	run := dagrun.TaskRun{ID: r.ID, RunID: r.RunID, TaskName: r.TaskName, Status: dagrun.Status(r.Status)}
	if len(r.Result) > 0 {
		var result map[string]any
		if err := json.Unmarshal(r.Result, &result); err != nil {
			return dagrun.TaskRun{}, err
		}
		run.Result = result
	}
	if r.ErrorMessage.Valid {
		run.ErrorMessage = &r.ErrorMessage.String
	}
	if r.StartedAt.Valid {
		run.StartedAt = &r.StartedAt.Time
	}
	if r.EndedAt.Valid {
		run.EndedAt = &r.EndedAt.Time
	}
	return run, nil
}

func (s *TaskRunStore) Insert(ctx context.Context, run dagrun.TaskRun) (dagrun.TaskRun, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	var resultJSON []byte
	if run.Result != nil {
		var err error
		resultJSON, err = json.Marshal(run.Result)
		if err != nil {
			return dagrun.TaskRun{}, ledgererrors.Backend("insert", err)
		}
	}
	_, err := s.l.db.ExecContext(ctx, `
		INSERT INTO task_runs (id, run_id, task_name, status, result, error_message, started_at, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, run.ID, run.RunID, run.TaskName, string(run.Status), resultJSON, run.ErrorMessage, run.StartedAt, run.EndedAt)
	if err != nil {
		return dagrun.TaskRun{}, ledgererrors.Backend("insert", err)
	}
	return run, nil
}

func (s *TaskRunStore) Update(ctx context.Context, taskRunID string, status dagrun.Status, result map[string]any, errMsg *string, startedAt, endedAt *time.Time) error {
	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return ledgererrors.Backend("update", err)
		}
	}
	res, err := s.l.db.ExecContext(ctx, `
		UPDATE task_runs SET
			status = $1,
			result = COALESCE($2, result),
			error_message = COALESCE($3, error_message),
			started_at = COALESCE($4, started_at),
			ended_at = COALESCE($5, ended_at)
		WHERE id = $6
	`, string(status), resultJSON, errMsg, startedAt, endedAt, taskRunID)
	if err != nil {
		return ledgererrors.Backend("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ledgererrors.Backend("update", err)
	}
	if n == 0 {
		return ledgererrors.NotFound("task_run", taskRunID)
	}
	return nil
}

func (s *TaskRunStore) GetByRun(ctx context.Context, runID string) ([]dagrun.TaskRun, error) {
	var rows []dbTaskRunRow
	err := s.l.db.SelectContext(ctx, &rows, `SELECT * FROM task_runs WHERE run_id = $1`, runID)
	if err != nil {
		return nil, ledgererrors.Backend("get_by_run", err)
	}
	out := make([]dagrun.TaskRun, 0, len(rows))
	for _, r := range rows {
		run, err := r.toDomain()
		if err != nil {
			return nil, ledgererrors.Backend("decode_task_run", err)
		}
		out = append(out, run)
	}
	return out, nil
}
