package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/coupon"
	"github.com/flightledger/core/pkg/storage"
)

// CouponMatchStore is the remote implementation of storage.CouponMatchStore.
type CouponMatchStore struct{ l *Ledger }

func NewCouponMatchStore(l *Ledger) *CouponMatchStore { return &CouponMatchStore{l: l} }

var _ storage.CouponMatchStore = (*CouponMatchStore)(nil)

type dbMatchRow struct {
	ID              string         `db:"id"`
	TicketNumber    string         `db:"ticket_number"`
	CouponNumber    int            `db:"coupon_number"`
	Status          string         `db:"status"`
	IssuedEventRef  sql.NullString `db:"issued_event_ref"`
	FlownEventRef   sql.NullString `db:"flown_event_ref"`
	MatchedAt       sql.NullTime   `db:"matched_at"`
	DaysInSuspense  int            `db:"days_in_suspense"`
	Notes           sql.NullString `db:"notes"`
}

func (r dbMatchRow) toDomain() coupon.MatchRow {
	row := coupon.MatchRow{
		TicketNumber:   r.TicketNumber,
		CouponNumber:   r.CouponNumber,
		Status:         coupon.MatchStatus(r.Status),
		DaysInSuspense: r.DaysInSuspense,
		Notes:          r.Notes.String,
	}
	if r.IssuedEventRef.Valid {
		row.IssuedEventRef = &r.IssuedEventRef.String
	}
	if r.FlownEventRef.Valid {
		row.FlownEventRef = &r.FlownEventRef.String
	}
	if r.MatchedAt.Valid {
		row.MatchedAt = &r.MatchedAt.Time
	}
	return row
}

func (s *CouponMatchStore) Reset(ctx context.Context) error {
	_, err := s.l.db.ExecContext(ctx, `DELETE FROM coupon_matches`)
	if err != nil {
		return ledgererrors.Backend("reset", err)
	}
	return nil
}

func (s *CouponMatchStore) Upsert(ctx context.Context, row coupon.MatchRow) (coupon.MatchRow, error) {
	_, err := s.l.db.ExecContext(ctx, `
		INSERT INTO coupon_matches
			(id, ticket_number, coupon_number, status, issued_event_ref, flown_event_ref, matched_at, days_in_suspense, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (ticket_number, coupon_number) DO UPDATE SET
			status = EXCLUDED.status,
			issued_event_ref = EXCLUDED.issued_event_ref,
			flown_event_ref = EXCLUDED.flown_event_ref,
			matched_at = EXCLUDED.matched_at,
			days_in_suspense = EXCLUDED.days_in_suspense,
			notes = EXCLUDED.notes
	`, uuid.NewString(), row.TicketNumber, row.CouponNumber, string(row.Status),
		row.IssuedEventRef, row.FlownEventRef, row.MatchedAt, row.DaysInSuspense, row.Notes)
	if err != nil {
		return coupon.MatchRow{}, ledgererrors.Backend("upsert", err)
	}
	return row, nil
}

func (s *CouponMatchStore) AllRows(ctx context.Context) ([]coupon.MatchRow, error) {
	var rows []dbMatchRow
	if err := s.l.db.SelectContext(ctx, &rows, `SELECT * FROM coupon_matches`); err != nil {
		return nil, ledgererrors.Backend("all_rows", err)
	}
	out := make([]coupon.MatchRow, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *CouponMatchStore) GetSuspense(ctx context.Context, minAgeDays int) ([]coupon.MatchRow, error) {
	var rows []dbMatchRow
	err := s.l.db.SelectContext(ctx, &rows, `
		SELECT * FROM coupon_matches
		WHERE status IN ('suspense', 'unmatched_issued', 'unmatched_flown') AND days_in_suspense >= $1
	`, minAgeDays)
	if err != nil {
		return nil, ledgererrors.Backend("get_suspense", err)
	}
	out := make([]coupon.MatchRow, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
