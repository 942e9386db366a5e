// Package settlement runs the interline settlement saga: calculate, validate,
// submit, confirm, reconcile, or compensate one settlement row, appending a
// saga step and a lineage record for every transition.
package settlement

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/audit"
	domain "github.com/flightledger/core/internal/domain/settlement"
	"github.com/flightledger/core/pkg/logger"
	"github.com/flightledger/core/pkg/storage"
)

var disputeTolerance = decimal.RequireFromString("0.01")

// Engine drives the settlement saga over one settlement row at a time.
type Engine struct {
	repo  storage.SettlementStore
	audit *audit.Store
	log   *logger.Logger
}

func New(repo storage.SettlementStore, auditStore *audit.Store, log *logger.Logger) *Engine {
	return &Engine{repo: repo, audit: auditStore, log: log.Named("settlement")}
}

func (e *Engine) Reset(ctx context.Context) error {
	return e.repo.Reset(ctx)
}

// Calculate opens a new settlement in the calculated state. The currency is
// always set to USD; no currency is taken from the caller or the event.
func (e *Engine) Calculate(ctx context.Context, ticketNumber string, couponNumber int, counterpartyType string, ourAmount decimal.Decimal) (domain.Settlement, error) {
	now := time.Now().UTC()
	row := domain.Settlement{
		ID:               uuid.NewString(),
		TicketNumber:     ticketNumber,
		CouponNumber:     couponNumber,
		Status:           domain.StatusCalculated,
		OurAmount:        &ourAmount,
		Currency:         "USD",
		CounterpartyType: counterpartyType,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	stored, err := e.repo.Insert(ctx, row)
	if err != nil {
		return domain.Settlement{}, err
	}
	if err := e.logTransition(ctx, stored.ID, "none", string(domain.StatusCalculated), domain.ActionCalculate,
		map[string]any{"our_amount": ourAmount.String()}); err != nil {
		return domain.Settlement{}, err
	}
	return stored, nil
}

// Validate moves a calculated settlement to validated. A non-positive
// our_amount leaves the settlement untouched rather than erroring, since a
// zero-value claim never needs counterparty confirmation.
func (e *Engine) Validate(ctx context.Context, settlementID string) (domain.Settlement, error) {
	row, err := e.require(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if row.Status != domain.StatusCalculated {
		return domain.Settlement{}, ledgererrors.InvalidTransition(string(row.Status), string(domain.ActionValidate))
	}
	if row.OurAmount == nil || !row.OurAmount.IsPositive() {
		return row, nil
	}
	if err := e.repo.UpdateStatus(ctx, settlementID, domain.StatusValidated, nil); err != nil {
		return domain.Settlement{}, err
	}
	if err := e.logTransition(ctx, settlementID, string(domain.StatusCalculated), string(domain.StatusValidated), domain.ActionValidate, map[string]any{}); err != nil {
		return domain.Settlement{}, err
	}
	return e.require(ctx, settlementID)
}

// Submit moves a validated settlement to submitted.
func (e *Engine) Submit(ctx context.Context, settlementID string) (domain.Settlement, error) {
	row, err := e.require(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if row.Status != domain.StatusValidated {
		return domain.Settlement{}, ledgererrors.InvalidTransition(string(row.Status), string(domain.ActionSubmit))
	}
	if err := e.repo.UpdateStatus(ctx, settlementID, domain.StatusSubmitted, nil); err != nil {
		return domain.Settlement{}, err
	}
	if err := e.logTransition(ctx, settlementID, string(domain.StatusValidated), string(domain.StatusSubmitted), domain.ActionSubmit, map[string]any{}); err != nil {
		return domain.Settlement{}, err
	}
	return e.require(ctx, settlementID)
}

// Confirm records the counterparty's claimed amount. The settlement lands on
// confirmed if the two amounts agree within tolerance, disputed otherwise.
func (e *Engine) Confirm(ctx context.Context, settlementID string, theirAmount decimal.Decimal) (domain.Settlement, error) {
	row, err := e.require(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if row.Status != domain.StatusSubmitted {
		return domain.Settlement{}, ledgererrors.InvalidTransition(string(row.Status), string(domain.ActionConfirm))
	}
	var ourAmount decimal.Decimal
	if row.OurAmount != nil {
		ourAmount = *row.OurAmount
	}
	newStatus := domain.StatusDisputed
	if ourAmount.Sub(theirAmount).Abs().LessThan(disputeTolerance) {
		newStatus = domain.StatusConfirmed
	}
	if err := e.repo.UpdateStatus(ctx, settlementID, newStatus, map[string]any{"their_amount": &theirAmount}); err != nil {
		return domain.Settlement{}, err
	}
	if err := e.logTransition(ctx, settlementID, string(domain.StatusSubmitted), string(newStatus), domain.ActionConfirm,
		map[string]any{"our_amount": ourAmount.String(), "their_amount": theirAmount.String()}); err != nil {
		return domain.Settlement{}, err
	}
	return e.require(ctx, settlementID)
}

// Reconcile closes out a confirmed settlement.
func (e *Engine) Reconcile(ctx context.Context, settlementID string) (domain.Settlement, error) {
	row, err := e.require(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if row.Status != domain.StatusConfirmed {
		return domain.Settlement{}, ledgererrors.InvalidTransition(string(row.Status), string(domain.ActionReconcile))
	}
	if err := e.repo.UpdateStatus(ctx, settlementID, domain.StatusReconciled, nil); err != nil {
		return domain.Settlement{}, err
	}
	if err := e.logTransition(ctx, settlementID, string(domain.StatusConfirmed), string(domain.StatusReconciled), domain.ActionReconcile, map[string]any{}); err != nil {
		return domain.Settlement{}, err
	}
	return e.require(ctx, settlementID)
}

// Compensate reverses a settlement from any non-compensated status.
// Compensating an already-compensated settlement is a no-op, since the
// reversal has already run.
func (e *Engine) Compensate(ctx context.Context, settlementID, reason string) (domain.Settlement, error) {
	row, err := e.require(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if row.Status == domain.StatusCompensated {
		return row, nil
	}
	fromStatus := row.Status
	if err := e.repo.UpdateStatus(ctx, settlementID, domain.StatusCompensated, nil); err != nil {
		return domain.Settlement{}, err
	}
	if err := e.logTransition(ctx, settlementID, string(fromStatus), string(domain.StatusCompensated), domain.ActionCompensate,
		map[string]any{"reason": reason}); err != nil {
		return domain.Settlement{}, err
	}
	return e.require(ctx, settlementID)
}

// ListSettlements returns every settlement, optionally filtered by status,
// newest first.
func (e *Engine) ListSettlements(ctx context.Context, status *domain.Status) ([]domain.Settlement, error) {
	rows, err := e.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := rows[:0:0]
	for _, row := range rows {
		if status != nil && row.Status != *status {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetSaga returns a settlement's transition log, oldest first.
func (e *Engine) GetSaga(ctx context.Context, settlementID string) ([]domain.SagaStep, error) {
	return e.repo.GetSagaLog(ctx, settlementID)
}

func (e *Engine) require(ctx context.Context, settlementID string) (domain.Settlement, error) {
	row, err := e.repo.Get(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if row == nil {
		return domain.Settlement{}, ledgererrors.NotFound("settlement", settlementID)
	}
	return *row, nil
}

func (e *Engine) logTransition(ctx context.Context, settlementID, fromStatus, toStatus string, action domain.Action, detail map[string]any) error {
	step := domain.SagaStep{
		SettlementID: settlementID,
		Action:       action,
		FromStatus:   domain.Status(fromStatus),
		ToStatus:     domain.Status(toStatus),
		Detail:       detail,
		Timestamp:    time.Now().UTC(),
	}
	if _, err := e.repo.InsertSaga(ctx, step); err != nil {
		return err
	}
	if e.audit != nil {
		ref := settlementID
		auditDetail := map[string]any{"from_status": fromStatus, "to_status": toStatus}
		for k, v := range detail {
			auditDetail[k] = v
		}
		if _, err := e.audit.Log(ctx, "settlement_"+string(action), "settlement_engine", nil, nil, &ref, auditDetail, nil); err != nil {
			return err
		}
	}
	e.log.WithFields(map[string]interface{}{
		"settlement_id": settlementID,
		"action":        action,
		"from_status":   fromStatus,
		"to_status":     toStatus,
	}).Infow("settlement transition")
	return nil
}
