// Package matching joins issued and flown coupon events into match rows,
// ages unmatched pairs into suspense, and flags pairs overdue for
// escalation. Matching is call-based: a round only progresses state when
// run_matching or age_suspense is invoked, never on a wall-clock timer.
package matching

import (
	"context"
	"sort"
	"time"

	"github.com/flightledger/core/internal/domain/coupon"
	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/internal/domain/ticket"
	"github.com/flightledger/core/internal/ticketstore"
	"github.com/flightledger/core/pkg/logger"
	"github.com/flightledger/core/pkg/storage"
)

const (
	suspenseThresholdDays   = 30
	escalationThresholdDays = 90
	escalationNote          = "Escalation required (>90 days)."
)

// Result tallies one run_matching pass.
type Result struct {
	Matched         int
	UnmatchedIssued int
	UnmatchedFlown  int
}

type key struct {
	TicketNumber string
	CouponNumber int
}

func (k key) Less(other key) bool {
	if k.TicketNumber != other.TicketNumber {
		return k.TicketNumber < other.TicketNumber
	}
	return k.CouponNumber < other.CouponNumber
}

// Matcher runs the issued-vs-flown join and ages the resulting suspense
// queue.
type Matcher struct {
	tickets *ticketstore.Store
	matches storage.CouponMatchStore
	log     *logger.Logger
}

func New(tickets *ticketstore.Store, matches storage.CouponMatchStore, log *logger.Logger) *Matcher {
	return &Matcher{tickets: tickets, matches: matches, log: log.Named("matching")}
}

func (m *Matcher) Reset(ctx context.Context) error {
	return m.matches.Reset(ctx)
}

// RunMatching rebuilds every match row from the current event history: an
// issued event (ticket_issued or ticket_reissued) is joined to a coupon_flown
// event for the same (ticket_number, coupon_number). Iteration order over
// the join keys is sorted, so the sequence of upserts is deterministic
// across runs over identical input.
func (m *Matcher) RunMatching(ctx context.Context) (Result, error) {
	if err := m.matches.Reset(ctx); err != nil {
		return Result{}, err
	}

	issuedRows, err := m.tickets.GetEventsByType(ctx, []event.Type{event.TicketIssued, event.TicketReissued})
	if err != nil {
		return Result{}, err
	}
	flownRows, err := m.tickets.GetEventsByType(ctx, []event.Type{event.CouponFlown})
	if err != nil {
		return Result{}, err
	}

	issuedByKey := indexByKey(issuedRows)
	flownByKey := indexByKey(flownRows)

	keys := make(map[key]struct{}, len(issuedByKey)+len(flownByKey))
	for k := range issuedByKey {
		keys[k] = struct{}{}
	}
	for k := range flownByKey {
		keys[k] = struct{}{}
	}
	sortedKeys := make([]key, 0, len(keys))
	for k := range keys {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Slice(sortedKeys, func(i, j int) bool { return sortedKeys[i].Less(sortedKeys[j]) })

	result := Result{}
	now := time.Now().UTC()
	for _, k := range sortedKeys {
		issued, hasIssued := issuedByKey[k]
		flown, hasFlown := flownByKey[k]

		row := coupon.MatchRow{TicketNumber: k.TicketNumber, CouponNumber: k.CouponNumber}
		switch {
		case hasIssued && hasFlown:
			row.Status = coupon.StatusMatched
			matched := now
			row.MatchedAt = &matched
			result.Matched++
		case hasIssued:
			row.Status = coupon.StatusUnmatchedIssued
			result.UnmatchedIssued++
		default:
			row.Status = coupon.StatusUnmatchedFlown
			result.UnmatchedFlown++
		}
		if hasIssued {
			ref := ticketstore.Ref(issued)
			row.IssuedEventRef = &ref
		}
		if hasFlown {
			ref := ticketstore.Ref(flown)
			row.FlownEventRef = &ref
		}

		if _, err := m.matches.Upsert(ctx, row); err != nil {
			return Result{}, err
		}
	}

	if err := m.escalateAgedSuspense(ctx); err != nil {
		return Result{}, err
	}

	m.log.WithFields(map[string]interface{}{
		"matched":          result.Matched,
		"unmatched_issued": result.UnmatchedIssued,
		"unmatched_flown":  result.UnmatchedFlown,
	}).Infow("matching run complete")
	return result, nil
}

// escalateAgedSuspense moves any unmatched row already older than the
// suspense threshold into suspense, mirroring the fresh aging performed at
// the end of every run_matching pass before anything has been aged yet.
func (m *Matcher) escalateAgedSuspense(ctx context.Context) error {
	rows, err := m.matches.AllRows(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if !isUnresolved(row.Status) {
			continue
		}
		if row.DaysInSuspense > suspenseThresholdDays {
			row.Status = coupon.StatusSuspense
			if _, err := m.matches.Upsert(ctx, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// AgeSuspense advances every unresolved row by one aging unit. It is driven
// by explicit calls (typically one per DAG run), not wall-clock time.
func (m *Matcher) AgeSuspense(ctx context.Context) (int, error) {
	rows, err := m.matches.AllRows(ctx)
	if err != nil {
		return 0, err
	}
	aged := 0
	for _, row := range rows {
		if !isUnresolved(row.Status) {
			continue
		}
		row.DaysInSuspense++
		if row.DaysInSuspense > suspenseThresholdDays {
			row.Status = coupon.StatusSuspense
		}
		if row.DaysInSuspense > escalationThresholdDays {
			row.Notes = escalationNote
		}
		if _, err := m.matches.Upsert(ctx, row); err != nil {
			return 0, err
		}
		aged++
	}
	return aged, nil
}

// GetSuspenseItems returns unresolved rows of at least minAgeDays, sorted by
// days_in_suspense descending (oldest first).
func (m *Matcher) GetSuspenseItems(ctx context.Context, minAgeDays int) ([]coupon.MatchRow, error) {
	rows, err := m.matches.GetSuspense(ctx, minAgeDays)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DaysInSuspense > rows[j].DaysInSuspense })
	return rows, nil
}

func isUnresolved(status coupon.MatchStatus) bool {
	return status == coupon.StatusUnmatchedIssued || status == coupon.StatusUnmatchedFlown || status == coupon.StatusSuspense
}

func indexByKey(rows []ticket.EventRow) map[key]ticket.EventRow {
	out := make(map[key]ticket.EventRow, len(rows))
	for _, row := range rows {
		if row.CouponNumber == nil {
			continue
		}
		out[key{TicketNumber: row.TicketNumber, CouponNumber: *row.CouponNumber}] = row
	}
	return out
}
