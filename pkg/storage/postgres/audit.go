package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/audit"
	"github.com/flightledger/core/pkg/storage"
)

// AuditStore is the remote implementation of storage.AuditStore.
type AuditStore struct{ l *Ledger }

func NewAuditStore(l *Ledger) *AuditStore { return &AuditStore{l: l} }

var _ storage.AuditStore = (*AuditStore)(nil)

type dbAuditRow struct {
	ID              string         `db:"id"`
	Timestamp       time.Time      `db:"timestamp"`
	Action          string         `db:"action"`
	Component       string         `db:"component"`
	TicketNumber    sql.NullString `db:"ticket_number"`
	InputEventIDs   []byte         `db:"input_event_ids"`
	OutputReference sql.NullString `db:"output_reference"`
	Detail          []byte         `db:"detail"`
	RawSourceHash   sql.NullString `db:"raw_source_hash"`
}

func (r dbAuditRow) toDomain() (audit.Record, error) {
	var ids []string
	if len(r.InputEventIDs) > 0 {
		if err := json.Unmarshal(r.InputEventIDs, &ids); err != nil {
			return audit.Record{}, err
		}
	}
	detail := map[string]any{}
	if len(r.Detail) > 0 {
		if err := json.Unmarshal(r.Detail, &detail); err != nil {
			return audit.Record{}, err
		}
	}
	rec := audit.Record{
		ID:            r.ID,
		Timestamp:     r.Timestamp,
		Action:        r.Action,
		Component:     r.Component,
		InputEventIDs: ids,
		Detail:        detail,
	}
	if r.TicketNumber.Valid {
		rec.TicketNumber = &r.TicketNumber.String
	}
	if r.OutputReference.Valid {
		rec.OutputReference = &r.OutputReference.String
	}
	if r.RawSourceHash.Valid {
		rec.RawSourceHash = &r.RawSourceHash.String
	}
	return rec, nil
}

func (s *AuditStore) Reset(ctx context.Context) error {
	_, err := s.l.db.ExecContext(ctx, `DELETE FROM audit_log`)
	if err != nil {
		return ledgererrors.Backend("reset", err)
	}
	return nil
}

func (s *AuditStore) Insert(ctx context.Context, rec audit.Record) (audit.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	idsJSON, err := json.Marshal(rec.InputEventIDs)
	if err != nil {
		return audit.Record{}, ledgererrors.Backend("insert", err)
	}
	detailJSON, err := json.Marshal(rec.Detail)
	if err != nil {
		return audit.Record{}, ledgererrors.Backend("insert", err)
	}
	_, err = s.l.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, action, component, ticket_number, input_event_ids, output_reference, detail, raw_source_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, rec.ID, rec.Timestamp, rec.Action, rec.Component, rec.TicketNumber, idsJSON, rec.OutputReference, detailJSON, rec.RawSourceHash)
	if err != nil {
		return audit.Record{}, ledgererrors.Backend("insert", err)
	}
	return rec, nil
}

func (s *AuditStore) GetByTicket(ctx context.Context, ticketNumber string) ([]audit.Record, error) {
	var rows []dbAuditRow
	err := s.l.db.SelectContext(ctx, &rows,
		`SELECT * FROM audit_log WHERE ticket_number = $1 ORDER BY timestamp`, ticketNumber)
	if err != nil {
		return nil, ledgererrors.Backend("get_by_ticket", err)
	}
	return decodeAuditRows(rows)
}

func (s *AuditStore) GetByOutputReference(ctx context.Context, outputReference string) ([]audit.Record, error) {
	var rows []dbAuditRow
	err := s.l.db.SelectContext(ctx, &rows,
		`SELECT * FROM audit_log WHERE output_reference = $1 ORDER BY timestamp`, outputReference)
	if err != nil {
		return nil, ledgererrors.Backend("get_by_output_reference", err)
	}
	return decodeAuditRows(rows)
}

func decodeAuditRows(rows []dbAuditRow) ([]audit.Record, error) {
	out := make([]audit.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toDomain()
		if err != nil {
			return nil, ledgererrors.Backend("decode_audit_row", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
