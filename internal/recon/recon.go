// Package recon runs three-way reconciliation between issued coupons,
// flown coupons, and counterparty settlement claims, classifying each
// (ticket, coupon) pair into a matched or break outcome.
package recon

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/internal/domain/recon"
	"github.com/flightledger/core/internal/matching"
	"github.com/flightledger/core/internal/ticketstore"
	"github.com/flightledger/core/pkg/logger"
	"github.com/flightledger/core/pkg/storage"
)

var (
	fareMismatchTolerance = decimal.RequireFromString("0.01")
	highSeverityThreshold = decimal.RequireFromString("10")
)

const roundedBelowToleranceNote = "Rounded below tolerance."

// Engine runs the three-way reconciliation pass and serves break queries.
type Engine struct {
	tickets *ticketstore.Store
	matcher *matching.Matcher
	results storage.ReconStore
	log     *logger.Logger
}

func New(tickets *ticketstore.Store, matcher *matching.Matcher, results storage.ReconStore, log *logger.Logger) *Engine {
	return &Engine{tickets: tickets, matcher: matcher, results: results, log: log.Named("recon")}
}

func (e *Engine) Reset(ctx context.Context) error {
	return e.results.Reset(ctx)
}

// ClassifyBreak is the ordered decision table applied to one (ticket, coupon)
// pair. Order matters: duplicate_lift takes precedence over every other
// signal, then timing, then missing settlement, then the amount tolerances.
func ClassifyBreak(
	ourAmount, theirAmount *decimal.Decimal,
	flownExists, duplicateLift, settlementExists bool,
) recon.Classification {
	duplicate := recon.BreakDuplicateLift
	timing := recon.BreakTiming
	missing := recon.BreakMissingSettlement
	fareMismatch := recon.BreakFareMismatch

	if duplicateLift {
		return recon.Classification{BreakType: &duplicate, Severity: recon.SeverityHigh, Status: recon.StatusBreak, Resolution: recon.ResolutionUnresolved}
	}
	if !flownExists {
		return recon.Classification{BreakType: &timing, Severity: recon.SeverityLow, Status: recon.StatusBreak, Resolution: recon.ResolutionUnresolved}
	}
	if !settlementExists {
		return recon.Classification{BreakType: &missing, Severity: recon.SeverityHigh, Status: recon.StatusBreak, Resolution: recon.ResolutionUnresolved}
	}
	if ourAmount == nil || theirAmount == nil {
		return recon.Classification{BreakType: &missing, Severity: recon.SeverityHigh, Status: recon.StatusBreak, Resolution: recon.ResolutionUnresolved}
	}

	difference := ourAmount.Sub(*theirAmount).Abs()
	if difference.LessThan(fareMismatchTolerance) {
		return recon.Classification{BreakType: nil, Severity: recon.SeverityLow, Status: recon.StatusMatched, Resolution: recon.ResolutionAutoResolved}
	}
	severity := recon.SeverityMedium
	if difference.GreaterThanOrEqual(highSeverityThreshold) {
		severity = recon.SeverityHigh
	}
	return recon.Classification{BreakType: &fareMismatch, Severity: severity, Status: recon.StatusBreak, Resolution: recon.ResolutionUnresolved}
}

type coupleKey struct {
	TicketNumber string
	CouponNumber int
}

func (k coupleKey) Less(other coupleKey) bool {
	if k.TicketNumber != other.TicketNumber {
		return k.TicketNumber < other.TicketNumber
	}
	return k.CouponNumber < other.CouponNumber
}

// RunFullRecon clears prior recon rows, re-runs matching, then classifies
// every (ticket, coupon) pair that appears in the issued-event set.
func (e *Engine) RunFullRecon(ctx context.Context) (recon.Summary, error) {
	if err := e.results.Reset(ctx); err != nil {
		return recon.Summary{}, err
	}
	if _, err := e.matcher.RunMatching(ctx); err != nil {
		return recon.Summary{}, err
	}

	issuedRows, err := e.tickets.GetEventsByType(ctx, []event.Type{event.TicketIssued, event.TicketReissued})
	if err != nil {
		return recon.Summary{}, err
	}
	flownRows, err := e.tickets.GetEventsByType(ctx, []event.Type{event.CouponFlown})
	if err != nil {
		return recon.Summary{}, err
	}
	settlementRows, err := e.tickets.GetEventsByType(ctx, []event.Type{event.SettlementDue, event.InterlineClaim})
	if err != nil {
		return recon.Summary{}, err
	}

	issuedByKey := map[coupleKey]event.Canonical{}
	var issuedKeys []coupleKey
	for _, row := range issuedRows {
		if row.Payload.CouponNumber == nil {
			continue
		}
		k := coupleKey{row.TicketNumber, *row.Payload.CouponNumber}
		if _, seen := issuedByKey[k]; !seen {
			issuedKeys = append(issuedKeys, k)
		}
		issuedByKey[k] = row.Payload
	}

	flownCountByKey := map[coupleKey]int{}
	flownByKey := map[coupleKey]event.Canonical{}
	for _, row := range flownRows {
		if row.Payload.CouponNumber == nil {
			continue
		}
		k := coupleKey{row.TicketNumber, *row.Payload.CouponNumber}
		if _, seen := flownByKey[k]; !seen {
			flownByKey[k] = row.Payload
		}
		flownCountByKey[k]++
	}

	settlementByKey := map[coupleKey]event.Canonical{}
	for _, row := range settlementRows {
		if row.Payload.CouponNumber == nil {
			continue
		}
		settlementByKey[coupleKey{row.TicketNumber, *row.Payload.CouponNumber}] = row.Payload
	}

	sort.Slice(issuedKeys, func(i, j int) bool { return issuedKeys[i].Less(issuedKeys[j]) })

	summary := recon.Summary{BreaksByType: map[string]int{}, BreaksBySeverity: map[string]int{}}
	now := time.Now().UTC()

	for _, k := range issuedKeys {
		issued := issuedByKey[k]
		_, hasFlown := flownByKey[k]
		settlement, hasSettlement := settlementByKey[k]
		duplicateLift := flownCountByKey[k] > 1

		var theirAmount *decimal.Decimal
		if hasSettlement {
			theirAmount = settlement.GrossAmount
		}

		classification := ClassifyBreak(issued.GrossAmount, theirAmount, hasFlown, duplicateLift, hasSettlement)

		var difference *decimal.Decimal
		if issued.GrossAmount != nil && theirAmount != nil {
			d := issued.GrossAmount.Sub(*theirAmount)
			difference = &d
		}

		row := recon.ResultRow{
			TicketNumber: k.TicketNumber,
			CouponNumber: k.CouponNumber,
			BreakType:    classification.BreakType,
			Severity:     classification.Severity,
			Status:       classification.Status,
			Resolution:   classification.Resolution,
			OurAmount:    issued.GrossAmount,
			TheirAmount:  theirAmount,
			Difference:   difference,
			CreatedAt:    now,
		}
		if classification.Resolution == recon.ResolutionAutoResolved {
			note := roundedBelowToleranceNote
			row.ResolutionNotes = &note
			resolvedAt := now
			row.ResolvedAt = &resolvedAt
		}

		if _, err := e.results.Insert(ctx, row); err != nil {
			return recon.Summary{}, err
		}

		if classification.Status == recon.StatusMatched {
			summary.TotalMatched++
		} else {
			summary.TotalBreaks++
			if classification.BreakType != nil {
				summary.BreaksByType[string(*classification.BreakType)]++
			}
			summary.BreaksBySeverity[string(classification.Severity)]++
		}
	}

	e.log.WithFields(map[string]interface{}{
		"total_matched": summary.TotalMatched,
		"total_breaks":  summary.TotalBreaks,
	}).Infow("reconciliation run complete")
	return summary, nil
}

// GetBreaks returns break rows filtered by resolution (default "unresolved")
// and, optionally, break type.
func (e *Engine) GetBreaks(ctx context.Context, resolution string, breakType *recon.BreakType) ([]recon.ResultRow, error) {
	if resolution == "" {
		resolution = string(recon.ResolutionUnresolved)
	}
	return e.results.GetBreaks(ctx, resolution, breakType)
}

// ResolveBreak records a manual or rule-based resolution for one break.
func (e *Engine) ResolveBreak(ctx context.Context, breakID, resolution, notes string) error {
	return e.results.Resolve(ctx, breakID, resolution, notes)
}
