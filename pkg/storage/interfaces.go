// Package storage declares the narrow repository interfaces each engine
// component depends on. Concrete backends live in the memory and postgres
// subpackages.
package storage

import (
	"context"
	"time"

	"github.com/flightledger/core/internal/domain/audit"
	"github.com/flightledger/core/internal/domain/coupon"
	"github.com/flightledger/core/internal/domain/dagrun"
	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/internal/domain/recon"
	"github.com/flightledger/core/internal/domain/settlement"
	"github.com/flightledger/core/internal/domain/ticket"
)

// TicketEventStore persists the append-only event history per ticket.
type TicketEventStore interface {
	Reset(ctx context.Context) error
	NextSequence(ctx context.Context, ticketNumber string) (int, error)
	FindByEventID(ctx context.Context, eventID string) (*ticket.EventRow, error)
	Insert(ctx context.Context, row ticket.EventRow) (ticket.EventRow, error)
	GetByTicket(ctx context.Context, ticketNumber string) ([]ticket.EventRow, error)
	GetByTicketAt(ctx context.Context, ticketNumber string, asOf time.Time) ([]ticket.EventRow, error)
	GetByEventTypes(ctx context.Context, types []event.Type) ([]ticket.EventRow, error)
	AllRows(ctx context.Context) ([]ticket.EventRow, error)
}

// TicketCurrentStateStore persists the latest replayed projection per ticket.
type TicketCurrentStateStore interface {
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, state ticket.State) error
	Get(ctx context.Context, ticketNumber string) (*ticket.State, error)
}

// CouponMatchStore persists the issued-vs-flown match rows.
type CouponMatchStore interface {
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, row coupon.MatchRow) (coupon.MatchRow, error)
	AllRows(ctx context.Context) ([]coupon.MatchRow, error)
	GetSuspense(ctx context.Context, minAgeDays int) ([]coupon.MatchRow, error)
}

// ReconStore persists reconciliation result rows.
type ReconStore interface {
	Reset(ctx context.Context) error
	Insert(ctx context.Context, row recon.ResultRow) (recon.ResultRow, error)
	AllRows(ctx context.Context) ([]recon.ResultRow, error)
	GetBreaks(ctx context.Context, resolution string, breakType *recon.BreakType) ([]recon.ResultRow, error)
	Resolve(ctx context.Context, breakID, resolution, notes string) error
}

// AuditStore persists the append-only lineage log.
type AuditStore interface {
	Reset(ctx context.Context) error
	Insert(ctx context.Context, rec audit.Record) (audit.Record, error)
	GetByTicket(ctx context.Context, ticketNumber string) ([]audit.Record, error)
	GetByOutputReference(ctx context.Context, outputReference string) ([]audit.Record, error)
}

// DagRunStore persists dag_run rows.
type DagRunStore interface {
	Insert(ctx context.Context, run dagrun.Run) (dagrun.Run, error)
	UpdateStatus(ctx context.Context, runID string, status dagrun.Status, endedAt *time.Time) error
	Get(ctx context.Context, runID string) (*dagrun.Run, error)
}

// TaskRunStore persists task_run rows belonging to a dag_run.
type TaskRunStore interface {
	Insert(ctx context.Context, run dagrun.TaskRun) (dagrun.TaskRun, error)
	Update(ctx context.Context, taskRunID string, status dagrun.Status, result map[string]any, errMsg *string, startedAt, endedAt *time.Time) error
	GetByRun(ctx context.Context, runID string) ([]dagrun.TaskRun, error)
}

// SettlementStore persists settlement rows and their saga step log.
type SettlementStore interface {
	Reset(ctx context.Context) error
	Insert(ctx context.Context, s settlement.Settlement) (settlement.Settlement, error)
	UpdateStatus(ctx context.Context, settlementID string, newStatus settlement.Status, extra map[string]any) error
	Get(ctx context.Context, settlementID string) (*settlement.Settlement, error)
	ListAll(ctx context.Context) ([]settlement.Settlement, error)
	InsertSaga(ctx context.Context, step settlement.SagaStep) (settlement.SagaStep, error)
	GetSagaLog(ctx context.Context, settlementID string) ([]settlement.SagaStep, error)
}
