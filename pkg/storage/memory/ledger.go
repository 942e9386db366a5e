package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/audit"
	"github.com/flightledger/core/internal/domain/coupon"
	"github.com/flightledger/core/internal/domain/dagrun"
	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/internal/domain/recon"
	"github.com/flightledger/core/internal/domain/settlement"
	"github.com/flightledger/core/internal/domain/ticket"
	"github.com/flightledger/core/pkg/storage"
)

// Ledger is the in-memory, mutex-guarded backend shared by every narrow
// repository the engine depends on. It is the authoritative backend for
// tests and the default runtime.
type Ledger struct {
	mu sync.RWMutex

	ticketEvents  map[string][]ticket.EventRow
	currentState  map[string]ticket.State
	couponMatches map[string]coupon.MatchRow
	reconResults  map[string]recon.ResultRow
	auditLog      []audit.Record
	dagRuns       map[string]dagrun.Run
	taskRuns      map[string]dagrun.TaskRun
	settlements   map[string]settlement.Settlement
	sagaLog       []settlement.SagaStep
}

// NewLedger creates an empty, shared in-memory backend.
func NewLedger() *Ledger {
	return &Ledger{
		ticketEvents:  make(map[string][]ticket.EventRow),
		currentState:  make(map[string]ticket.State),
		couponMatches: make(map[string]coupon.MatchRow),
		reconResults:  make(map[string]recon.ResultRow),
		dagRuns:       make(map[string]dagrun.Run),
		taskRuns:      make(map[string]dagrun.TaskRun),
		settlements:   make(map[string]settlement.Settlement),
	}
}

// ResetAll clears every collection. Used between test cases and before a
// full reseed.
func (l *Ledger) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ticketEvents = make(map[string][]ticket.EventRow)
	l.currentState = make(map[string]ticket.State)
	l.couponMatches = make(map[string]coupon.MatchRow)
	l.reconResults = make(map[string]recon.ResultRow)
	l.auditLog = nil
	l.dagRuns = make(map[string]dagrun.Run)
	l.taskRuns = make(map[string]dagrun.TaskRun)
	l.settlements = make(map[string]settlement.Settlement)
	l.sagaLog = nil
}

// TicketEventStore is the Ledger-backed implementation of storage.TicketEventStore.
type TicketEventStore struct{ l *Ledger }

// NewTicketEventStore wraps the shared Ledger for ticket event access.
func NewTicketEventStore(l *Ledger) *TicketEventStore { return &TicketEventStore{l: l} }

var _ storage.TicketEventStore = (*TicketEventStore)(nil)

func (s *TicketEventStore) Reset(_ context.Context) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.ticketEvents = make(map[string][]ticket.EventRow)
	return nil
}

func (s *TicketEventStore) NextSequence(_ context.Context, ticketNumber string) (int, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	return len(s.l.ticketEvents[ticketNumber]) + 1, nil
}

func (s *TicketEventStore) FindByEventID(_ context.Context, eventID string) (*ticket.EventRow, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	for _, rows := range s.l.ticketEvents {
		for _, row := range rows {
			if row.EventID == eventID {
				found := row
				return &found, nil
			}
		}
	}
	return nil, nil
}

func (s *TicketEventStore) Insert(_ context.Context, row ticket.EventRow) (ticket.EventRow, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	history := s.l.ticketEvents[row.TicketNumber]
	for _, existing := range history {
		if existing.EventSequence == row.EventSequence {
			return ticket.EventRow{}, ledgererrors.Conflict(row.TicketNumber)
		}
	}
	history = append(history, row)
	sort.Slice(history, func(i, j int) bool { return history[i].EventSequence < history[j].EventSequence })
	s.l.ticketEvents[row.TicketNumber] = history
	return row, nil
}

func (s *TicketEventStore) GetByTicket(_ context.Context, ticketNumber string) ([]ticket.EventRow, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	rows := s.l.ticketEvents[ticketNumber]
	out := make([]ticket.EventRow, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *TicketEventStore) GetByTicketAt(_ context.Context, ticketNumber string, asOf time.Time) ([]ticket.EventRow, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	var out []ticket.EventRow
	for _, row := range s.l.ticketEvents[ticketNumber] {
		if !row.OccurredAt.After(asOf) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *TicketEventStore) GetByEventTypes(_ context.Context, types []event.Type) ([]ticket.EventRow, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	wanted := make(map[event.Type]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	var out []ticket.EventRow
	for _, rows := range s.l.ticketEvents {
		for _, row := range rows {
			if _, ok := wanted[row.EventType]; ok {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (s *TicketEventStore) AllRows(_ context.Context) ([]ticket.EventRow, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	var out []ticket.EventRow
	for _, rows := range s.l.ticketEvents {
		out = append(out, rows...)
	}
	return out, nil
}

// TicketCurrentStateStore is the Ledger-backed implementation of
// storage.TicketCurrentStateStore.
type TicketCurrentStateStore struct{ l *Ledger }

func NewTicketCurrentStateStore(l *Ledger) *TicketCurrentStateStore {
	return &TicketCurrentStateStore{l: l}
}

var _ storage.TicketCurrentStateStore = (*TicketCurrentStateStore)(nil)

func (s *TicketCurrentStateStore) Reset(_ context.Context) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.currentState = make(map[string]ticket.State)
	return nil
}

func (s *TicketCurrentStateStore) Upsert(_ context.Context, state ticket.State) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.currentState[state.TicketNumber] = state.Clone()
	return nil
}

func (s *TicketCurrentStateStore) Get(_ context.Context, ticketNumber string) (*ticket.State, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	state, ok := s.l.currentState[ticketNumber]
	if !ok {
		return nil, nil
	}
	cloned := state.Clone()
	return &cloned, nil
}

// CouponMatchStore is the Ledger-backed implementation of storage.CouponMatchStore.
type CouponMatchStore struct{ l *Ledger }

func NewCouponMatchStore(l *Ledger) *CouponMatchStore { return &CouponMatchStore{l: l} }

var _ storage.CouponMatchStore = (*CouponMatchStore)(nil)

func (s *CouponMatchStore) Reset(_ context.Context) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.couponMatches = make(map[string]coupon.MatchRow)
	return nil
}

func (s *CouponMatchStore) Upsert(_ context.Context, row coupon.MatchRow) (coupon.MatchRow, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.couponMatches[row.Key()] = row
	return row, nil
}

func (s *CouponMatchStore) AllRows(_ context.Context) ([]coupon.MatchRow, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	out := make([]coupon.MatchRow, 0, len(s.l.couponMatches))
	for _, row := range s.l.couponMatches {
		out = append(out, row)
	}
	return out, nil
}

func (s *CouponMatchStore) GetSuspense(_ context.Context, minAgeDays int) ([]coupon.MatchRow, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	var out []coupon.MatchRow
	for _, row := range s.l.couponMatches {
		if isSuspenseEligible(row.Status) && row.DaysInSuspense >= minAgeDays {
			out = append(out, row)
		}
	}
	return out, nil
}

func isSuspenseEligible(status coupon.MatchStatus) bool {
	switch status {
	case coupon.StatusSuspense, coupon.StatusUnmatchedIssued, coupon.StatusUnmatchedFlown:
		return true
	default:
		return false
	}
}

// ReconStore is the Ledger-backed implementation of storage.ReconStore.
type ReconStore struct{ l *Ledger }

func NewReconStore(l *Ledger) *ReconStore { return &ReconStore{l: l} }

var _ storage.ReconStore = (*ReconStore)(nil)

func (s *ReconStore) Reset(_ context.Context) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.reconResults = make(map[string]recon.ResultRow)
	return nil
}

func (s *ReconStore) Insert(_ context.Context, row recon.ResultRow) (recon.ResultRow, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	s.l.reconResults[row.ID] = row
	return row, nil
}

func (s *ReconStore) AllRows(_ context.Context) ([]recon.ResultRow, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	out := make([]recon.ResultRow, 0, len(s.l.reconResults))
	for _, row := range s.l.reconResults {
		out = append(out, row)
	}
	return out, nil
}

func (s *ReconStore) GetBreaks(_ context.Context, resolution string, breakType *recon.BreakType) ([]recon.ResultRow, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	var out []recon.ResultRow
	for _, row := range s.l.reconResults {
		if row.Status != recon.StatusBreak {
			continue
		}
		if resolution != "" && string(row.Resolution) != resolution {
			continue
		}
		if breakType != nil && (row.BreakType == nil || *row.BreakType != *breakType) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *ReconStore) Resolve(_ context.Context, breakID, resolution, notes string) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	row, ok := s.l.reconResults[breakID]
	if !ok {
		return ledgererrors.NotFound("recon_result", breakID)
	}
	row.Resolution = recon.Resolution(resolution)
	n := notes
	row.ResolutionNotes = &n
	now := time.Now().UTC()
	row.ResolvedAt = &now
	s.l.reconResults[breakID] = row
	return nil
}

// AuditStore is the Ledger-backed implementation of storage.AuditStore.
type AuditStore struct{ l *Ledger }

func NewAuditStore(l *Ledger) *AuditStore { return &AuditStore{l: l} }

var _ storage.AuditStore = (*AuditStore)(nil)

func (s *AuditStore) Reset(_ context.Context) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.auditLog = nil
	return nil
}

func (s *AuditStore) Insert(_ context.Context, rec audit.Record) (audit.Record, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.l.auditLog = append(s.l.auditLog, rec)
	sort.Slice(s.l.auditLog, func(i, j int) bool { return s.l.auditLog[i].Timestamp.Before(s.l.auditLog[j].Timestamp) })
	return rec, nil
}

func (s *AuditStore) GetByTicket(_ context.Context, ticketNumber string) ([]audit.Record, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	var out []audit.Record
	for _, rec := range s.l.auditLog {
		if rec.TicketNumber != nil && *rec.TicketNumber == ticketNumber {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *AuditStore) GetByOutputReference(_ context.Context, outputReference string) ([]audit.Record, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	var out []audit.Record
	for _, rec := range s.l.auditLog {
		if rec.OutputReference != nil && *rec.OutputReference == outputReference {
			out = append(out, rec)
		}
	}
	return out, nil
}

// DagRunStore is the Ledger-backed implementation of storage.DagRunStore.
type DagRunStore struct{ l *Ledger }

func NewDagRunStore(l *Ledger) *DagRunStore { return &DagRunStore{l: l} }

var _ storage.DagRunStore = (*DagRunStore)(nil)

func (s *DagRunStore) Insert(_ context.Context, run dagrun.Run) (dagrun.Run, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	s.l.dagRuns[run.ID] = run
	return run, nil
}

func (s *DagRunStore) UpdateStatus(_ context.Context, runID string, status dagrun.Status, endedAt *time.Time) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	run, ok := s.l.dagRuns[runID]
	if !ok {
		return ledgererrors.NotFound("dag_run", runID)
	}
	run.Status = status
	if endedAt != nil {
		run.EndedAt = endedAt
	}
	s.l.dagRuns[runID] = run
	return nil
}

func (s *DagRunStore) Get(_ context.Context, runID string) (*dagrun.Run, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	run, ok := s.l.dagRuns[runID]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

// TaskRunStore is the Ledger-backed implementation of storage.TaskRunStore.
type TaskRunStore struct{ l *Ledger }

func NewTaskRunStore(l *Ledger) *TaskRunStore { return &TaskRunStore{l: l} }

var _ storage.TaskRunStore = (*TaskRunStore)(nil)

func (s *TaskRunStore) Insert(_ context.Context, run dagrun.TaskRun) (dagrun.TaskRun, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	s.l.taskRuns[run.ID] = run
	return run, nil
}

func (s *TaskRunStore) Update(_ context.Context, taskRunID string, status dagrun.Status, result map[string]any, errMsg *string, startedAt, endedAt *time.Time) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	run, ok := s.l.taskRuns[taskRunID]
	if !ok {
		return ledgererrors.NotFound("task_run", taskRunID)
	}
	run.Status = status
	if result != nil {
		run.Result = result
	}
	if errMsg != nil {
		run.ErrorMessage = errMsg
	}
	if startedAt != nil {
		run.StartedAt = startedAt
	}
	if endedAt != nil {
		run.EndedAt = endedAt
	}
	s.l.taskRuns[taskRunID] = run
	return nil
}

func (s *TaskRunStore) GetByRun(_ context.Context, runID string) ([]dagrun.TaskRun, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	var out []dagrun.TaskRun
	for _, run := range s.l.taskRuns {
		if run.RunID == runID {
			out = append(out, run)
		}
	}
	return out, nil
}

// SettlementStore is the Ledger-backed implementation of storage.SettlementStore.
type SettlementStore struct{ l *Ledger }

func NewSettlementStore(l *Ledger) *SettlementStore { return &SettlementStore{l: l} }

var _ storage.SettlementStore = (*SettlementStore)(nil)

func (s *SettlementStore) Reset(_ context.Context) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.settlements = make(map[string]settlement.Settlement)
	s.l.sagaLog = nil
	return nil
}

func (s *SettlementStore) Insert(_ context.Context, row settlement.Settlement) (settlement.Settlement, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	s.l.settlements[row.ID] = row
	return row, nil
}

func (s *SettlementStore) UpdateStatus(_ context.Context, settlementID string, newStatus settlement.Status, extra map[string]any) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	row, ok := s.l.settlements[settlementID]
	if !ok {
		return ledgererrors.NotFound("settlement", settlementID)
	}
	row.Status = newStatus
	row.UpdatedAt = time.Now().UTC()
	if theirAmount, ok := extra["their_amount"].(*decimal.Decimal); ok && theirAmount != nil {
		row.TheirAmount = theirAmount
	}
	s.l.settlements[settlementID] = row
	return nil
}

func (s *SettlementStore) Get(_ context.Context, settlementID string) (*settlement.Settlement, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	row, ok := s.l.settlements[settlementID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *SettlementStore) ListAll(_ context.Context) ([]settlement.Settlement, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	out := make([]settlement.Settlement, 0, len(s.l.settlements))
	for _, row := range s.l.settlements {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *SettlementStore) InsertSaga(_ context.Context, step settlement.SagaStep) (settlement.SagaStep, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if step.ID == "" {
		step.ID = uuid.NewString()
	}
	s.l.sagaLog = append(s.l.sagaLog, step)
	sort.Slice(s.l.sagaLog, func(i, j int) bool { return s.l.sagaLog[i].Timestamp.Before(s.l.sagaLog[j].Timestamp) })
	return step, nil
}

func (s *SettlementStore) GetSagaLog(_ context.Context, settlementID string) ([]settlement.SagaStep, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()
	var out []settlement.SagaStep
	for _, step := range s.l.sagaLog {
		if step.SettlementID == settlementID {
			out = append(out, step)
		}
	}
	return out, nil
}
