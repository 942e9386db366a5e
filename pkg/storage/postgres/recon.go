package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/recon"
	"github.com/flightledger/core/pkg/storage"
)

// ReconStore is the remote implementation of storage.ReconStore.
type ReconStore struct{ l *Ledger }

func NewReconStore(l *Ledger) *ReconStore { return &ReconStore{l: l} }

var _ storage.ReconStore = (*ReconStore)(nil)

type dbReconRow struct {
	ID              string         `db:"id"`
	TicketNumber    string         `db:"ticket_number"`
	CouponNumber    int            `db:"coupon_number"`
	BreakType       sql.NullString `db:"break_type"`
	Severity        string         `db:"severity"`
	Status          string         `db:"status"`
	Resolution      string         `db:"resolution"`
	OurAmount       sql.NullString `db:"our_amount"`
	TheirAmount     sql.NullString `db:"their_amount"`
	Difference      sql.NullString `db:"difference"`
	ResolutionNotes sql.NullString `db:"resolution_notes"`
	CreatedAt       time.Time      `db:"created_at"`
	ResolvedAt      sql.NullTime   `db:"resolved_at"`
}

func (r dbReconRow) toDomain() (recon.ResultRow, error) {
	row := recon.ResultRow{
		ID:           r.ID,
		TicketNumber: r.TicketNumber,
		CouponNumber: r.CouponNumber,
		Severity:     recon.Severity(r.Severity),
		Status:       recon.Status(r.Status),
		Resolution:   recon.Resolution(r.Resolution),
		CreatedAt:    r.CreatedAt,
	}
	if r.BreakType.Valid {
		bt := recon.BreakType(r.BreakType.String)
		row.BreakType = &bt
	}
	if r.ResolutionNotes.Valid {
		row.ResolutionNotes = &r.ResolutionNotes.String
	}
	if r.ResolvedAt.Valid {
		row.ResolvedAt = &r.ResolvedAt.Time
	}
	var err error
	row.OurAmount, err = nullableDecimal(r.OurAmount)
	if err != nil {
		return recon.ResultRow{}, err
	}
	row.TheirAmount, err = nullableDecimal(r.TheirAmount)
	if err != nil {
		return recon.ResultRow{}, err
	}
	row.Difference, err = nullableDecimal(r.Difference)
	if err != nil {
		return recon.ResultRow{}, err
	}
	return row, nil
}

func nullableDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalToNullString(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func (s *ReconStore) Reset(ctx context.Context) error {
	_, err := s.l.db.ExecContext(ctx, `DELETE FROM recon_results`)
	if err != nil {
		return ledgererrors.Backend("reset", err)
	}
	return nil
}

func (s *ReconStore) Insert(ctx context.Context, row recon.ResultRow) (recon.ResultRow, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	var breakType sql.NullString
	if row.BreakType != nil {
		breakType = sql.NullString{String: string(*row.BreakType), Valid: true}
	}
	_, err := s.l.db.ExecContext(ctx, `
		INSERT INTO recon_results
			(id, ticket_number, coupon_number, break_type, severity, status, resolution, our_amount, their_amount, difference, resolution_notes, created_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, row.ID, row.TicketNumber, row.CouponNumber, breakType, string(row.Severity), string(row.Status), string(row.Resolution),
		decimalToNullString(row.OurAmount), decimalToNullString(row.TheirAmount), decimalToNullString(row.Difference),
		row.ResolutionNotes, row.CreatedAt, row.ResolvedAt)
	if err != nil {
		return recon.ResultRow{}, ledgererrors.Backend("insert", err)
	}
	return row, nil
}

func (s *ReconStore) AllRows(ctx context.Context) ([]recon.ResultRow, error) {
	var rows []dbReconRow
	if err := s.l.db.SelectContext(ctx, &rows, `SELECT * FROM recon_results`); err != nil {
		return nil, ledgererrors.Backend("all_rows", err)
	}
	return decodeReconRows(rows)
}

func (s *ReconStore) GetBreaks(ctx context.Context, resolution string, breakType *recon.BreakType) ([]recon.ResultRow, error) {
	query := `SELECT * FROM recon_results WHERE status = 'break'`
	var args []any
	if resolution != "" {
		query += " AND resolution = ?"
		args = append(args, resolution)
	}
	if breakType != nil {
		query += " AND break_type = ?"
		args = append(args, string(*breakType))
	}
	var rows []dbReconRow
	if err := s.l.db.SelectContext(ctx, &rows, s.l.db.Rebind(query), args...); err != nil {
		return nil, ledgererrors.Backend("get_breaks", err)
	}
	return decodeReconRows(rows)
}

func (s *ReconStore) Resolve(ctx context.Context, breakID, resolution, notes string) error {
	result, err := s.l.db.ExecContext(ctx, `
		UPDATE recon_results SET resolution = $1, resolution_notes = $2, resolved_at = $3 WHERE id = $4
	`, resolution, notes, time.Now().UTC(), breakID)
	if err != nil {
		return ledgererrors.Backend("resolve", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return ledgererrors.Backend("resolve", err)
	}
	if n == 0 {
		return ledgererrors.NotFound("recon_result", breakID)
	}
	return nil
}

func decodeReconRows(rows []dbReconRow) ([]recon.ResultRow, error) {
	out := make([]recon.ResultRow, 0, len(rows))
	for _, r := range rows {
		row, err := r.toDomain()
		if err != nil {
			return nil, ledgererrors.Backend("decode_recon_row", err)
		}
		out = append(out, row)
	}
	return out, nil
}
