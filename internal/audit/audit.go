// Package audit is the append-only lineage log every pipeline stage writes
// one entry to when it derives one artifact from others. No update or
// delete surface is exposed.
package audit

import (
	"context"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"

	"github.com/flightledger/core/internal/domain/audit"
	"github.com/flightledger/core/pkg/logger"
	"github.com/flightledger/core/pkg/storage"
)

// Store logs and queries lineage entries.
type Store struct {
	repo storage.AuditStore
	log  *logger.Logger
}

func New(repo storage.AuditStore, log *logger.Logger) *Store {
	return &Store{repo: repo, log: log.Named("audit")}
}

func (s *Store) Reset(ctx context.Context) error {
	return s.repo.Reset(ctx)
}

// Log appends one lineage entry. id and timestamp are assigned here, never
// by the caller.
func (s *Store) Log(
	ctx context.Context,
	action, component string,
	ticketNumber *string,
	inputEventIDs []string,
	outputReference *string,
	detail map[string]any,
	rawSourceHash *string,
) (audit.Record, error) {
	if inputEventIDs == nil {
		inputEventIDs = []string{}
	}
	if detail == nil {
		detail = map[string]any{}
	}
	rec := audit.Record{
		ID:              uuid.NewString(),
		Timestamp:       time.Now().UTC(),
		Action:          action,
		Component:       component,
		TicketNumber:    ticketNumber,
		InputEventIDs:   inputEventIDs,
		OutputReference: outputReference,
		Detail:          detail,
		RawSourceHash:   rawSourceHash,
	}
	stored, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return audit.Record{}, err
	}
	s.log.WithFields(map[string]interface{}{
		"action":    action,
		"component": component,
	}).Debugw("audit record logged")
	return stored, nil
}

// GetLineage returns every record that produced or consumed outputReference,
// in timestamp-ascending order.
func (s *Store) GetLineage(ctx context.Context, outputReference string) ([]audit.Record, error) {
	return s.repo.GetByOutputReference(ctx, outputReference)
}

// GetHistory returns every lineage record touching ticketNumber, in
// timestamp-ascending order.
func (s *Store) GetHistory(ctx context.Context, ticketNumber string) ([]audit.Record, error) {
	return s.repo.GetByTicket(ctx, ticketNumber)
}

// QueryDetail evaluates a JSONPath expression against one record's detail
// payload, used by lineage drill-down views to pull a nested field without
// the caller needing to know the full detail shape.
func QueryDetail(rec audit.Record, path string) (any, error) {
	return jsonpath.Get(path, map[string]any(rec.Detail))
}
