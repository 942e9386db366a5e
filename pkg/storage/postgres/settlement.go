package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/settlement"
	"github.com/flightledger/core/pkg/storage"
)

// SettlementStore is the remote implementation of storage.SettlementStore.
type SettlementStore struct{ l *Ledger }

func NewSettlementStore(l *Ledger) *SettlementStore { return &SettlementStore{l: l} }

var _ storage.SettlementStore = (*SettlementStore)(nil)

type dbSettlementRow struct {
	ID               string         `db:"id"`
	TicketNumber     string         `db:"ticket_number"`
	CouponNumber     int            `db:"coupon_number"`
	Status           string         `db:"status"`
	OurAmount        sql.NullString `db:"our_amount"`
	TheirAmount      sql.NullString `db:"their_amount"`
	Currency         string         `db:"currency"`
	CounterpartyType string         `db:"counterparty_type"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r dbSettlementRow) toDomain() (settlement.Settlement, error) {
	row := settlement.Settlement{
		ID:               r.ID,
		TicketNumber:     r.TicketNumber,
		CouponNumber:     r.CouponNumber,
		Status:           settlement.Status(r.Status),
		Currency:         r.Currency,
		CounterpartyType: r.CounterpartyType,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	var err error
	row.OurAmount, err = nullableDecimal(r.OurAmount)
	if err != nil {
		return settlement.Settlement{}, err
	}
	row.TheirAmount, err = nullableDecimal(r.TheirAmount)
	if err != nil {
		return settlement.Settlement{}, err
	}
	return row, nil
}

func (s *SettlementStore) Reset(ctx context.Context) error {
	if _, err := s.l.db.ExecContext(ctx, `DELETE FROM settlement_saga_log`); err != nil {
		return ledgererrors.Backend("reset", err)
	}
	if _, err := s.l.db.ExecContext(ctx, `DELETE FROM settlements`); err != nil {
		return ledgererrors.Backend("reset", err)
	}
	return nil
}

func (s *SettlementStore) Insert(ctx context.Context, row settlement.Settlement) (settlement.Settlement, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := s.l.db.ExecContext(ctx, `
		INSERT INTO settlements (id, ticket_number, coupon_number, status, our_amount, their_amount, currency, counterparty_type, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, row.ID, row.TicketNumber, row.CouponNumber, string(row.Status), decimalToNullString(row.OurAmount),
		decimalToNullString(row.TheirAmount), row.Currency, row.CounterpartyType, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return settlement.Settlement{}, ledgererrors.Backend("insert", err)
	}
	return row, nil
}

func (s *SettlementStore) UpdateStatus(ctx context.Context, settlementID string, newStatus settlement.Status, extra map[string]any) error {
	var theirAmount sql.NullString
	if v, ok := extra["their_amount"].(*decimal.Decimal); ok {
		theirAmount = decimalToNullString(v)
	}
	result, err := s.l.db.ExecContext(ctx, `
		UPDATE settlements SET status = $1, updated_at = $2, their_amount = COALESCE($3, their_amount) WHERE id = $4
	`, string(newStatus), time.Now().UTC(), theirAmount, settlementID)
	if err != nil {
		return ledgererrors.Backend("update_status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return ledgererrors.Backend("update_status", err)
	}
	if n == 0 {
		return ledgererrors.NotFound("settlement", settlementID)
	}
	return nil
}

func (s *SettlementStore) Get(ctx context.Context, settlementID string) (*settlement.Settlement, error) {
	var row dbSettlementRow
	err := s.l.db.GetContext(ctx, &row, `SELECT * FROM settlements WHERE id = $1`, settlementID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ledgererrors.Backend("get", err)
	}
	out, err := row.toDomain()
	if err != nil {
		return nil, ledgererrors.Backend("get", err)
	}
	return &out, nil
}

func (s *SettlementStore) ListAll(ctx context.Context) ([]settlement.Settlement, error) {
	var rows []dbSettlementRow
	err := s.l.db.SelectContext(ctx, &rows, `SELECT * FROM settlements ORDER BY created_at DESC`)
	if err != nil {
		return nil, ledgererrors.Backend("list_all", err)
	}
	out := make([]settlement.Settlement, 0, len(rows))
	for _, r := range rows {
		row, err := r.toDomain()
		if err != nil {
			return nil, ledgererrors.Backend("decode_settlement", err)
		}
		out = append(out, row)
	}
	return out, nil
}

type dbSagaStepRow struct {
	ID           string    `db:"id"`
	SettlementID string    `db:"settlement_id"`
	Action       string    `db:"action"`
	FromStatus   string    `db:"from_status"`
	ToStatus     string    `db:"to_status"`
	Detail       []byte    `db:"detail"`
	Timestamp    time.Time `db:"timestamp"`
}

func (r dbSagaStepRow) toDomain() (settlement.SagaStep, error) {
	step := settlement.SagaStep{
		ID:           r.ID,
		SettlementID: r.SettlementID,
		Action:       settlement.Action(r.Action),
		FromStatus:   settlement.Status(r.FromStatus),
		ToStatus:     settlement.Status(r.ToStatus),
		Timestamp:    r.Timestamp,
	}
	if len(r.Detail) > 0 {
		var detail map[string]any
		if err := json.Unmarshal(r.Detail, &detail); err != nil {
			return settlement.SagaStep{}, err
		}
		step.Detail = detail
	}
	return step, nil
}

func (s *SettlementStore) InsertSaga(ctx context.Context, step settlement.SagaStep) (settlement.SagaStep, error) {
	if step.ID == "" {
		step.ID = uuid.NewString()
	}
	var detailJSON []byte
	if step.Detail != nil {
		var err error
		detailJSON, err = json.Marshal(step.Detail)
		if err != nil {
			return settlement.SagaStep{}, ledgererrors.Backend("insert_saga", err)
		}
	}
	_, err := s.l.db.ExecContext(ctx, `
		INSERT INTO settlement_saga_log (id, settlement_id, action, from_status, to_status, detail, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, step.ID, step.SettlementID, string(step.Action), string(step.FromStatus), string(step.ToStatus), detailJSON, step.Timestamp)
	if err != nil {
		return settlement.SagaStep{}, ledgererrors.Backend("insert_saga", err)
	}
	return step, nil
}

func (s *SettlementStore) GetSagaLog(ctx context.Context, settlementID string) ([]settlement.SagaStep, error) {
	var rows []dbSagaStepRow
	err := s.l.db.SelectContext(ctx, &rows,
		`SELECT * FROM settlement_saga_log WHERE settlement_id = $1 ORDER BY timestamp`, settlementID)
	if err != nil {
		return nil, ledgererrors.Backend("get_saga_log", err)
	}
	out := make([]settlement.SagaStep, 0, len(rows))
	for _, r := range rows {
		step, err := r.toDomain()
		if err != nil {
			return nil, ledgererrors.Backend("decode_saga_step", err)
		}
		out = append(out, step)
	}
	return out, nil
}
