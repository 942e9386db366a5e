package matching_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flightledger/core/internal/domain/coupon"
	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/internal/matching"
	"github.com/flightledger/core/internal/ticketstore"
	"github.com/flightledger/core/pkg/logger"
	"github.com/flightledger/core/pkg/storage/memory"
)

func newTestFixtures() (*ticketstore.Store, *matching.Matcher) {
	repos := memory.NewRepositories()
	log := logger.NewDefault("matching_test")
	tickets := ticketstore.New(repos.TicketEvents, repos.TicketState, log)
	matcher := matching.New(tickets, repos.CouponMatches, log)
	return tickets, matcher
}

func TestRunMatching_JoinsIssuedAndFlownByCompositeKey(t *testing.T) {
	ctx := context.Background()
	tickets, matcher := newTestFixtures()
	coupon1 := 1

	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e1", OccurredAt: time.Now().UTC(), SourceSystem: event.SourcePSS,
		EventType: event.TicketIssued, TicketNumber: "1111111111", CouponNumber: &coupon1,
	}))
	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e2", OccurredAt: time.Now().UTC(), SourceSystem: event.SourceDCS,
		EventType: event.CouponFlown, TicketNumber: "1111111111", CouponNumber: &coupon1,
	}))

	result, err := matcher.RunMatching(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Matched)
	require.Equal(t, 0, result.UnmatchedIssued)
	require.Equal(t, 0, result.UnmatchedFlown)
}

func TestRunMatching_UnmatchedIssuedWithNoFlownEvent(t *testing.T) {
	ctx := context.Background()
	tickets, matcher := newTestFixtures()
	coupon1 := 1

	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e1", OccurredAt: time.Now().UTC(), SourceSystem: event.SourcePSS,
		EventType: event.TicketIssued, TicketNumber: "2222222222", CouponNumber: &coupon1,
	}))

	result, err := matcher.RunMatching(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.UnmatchedIssued)

	items, err := matcher.GetSuspenseItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, coupon.StatusUnmatchedIssued, items[0].Status)
}

func TestRunMatching_UnmatchedFlownWithNoIssuedEvent(t *testing.T) {
	ctx := context.Background()
	tickets, matcher := newTestFixtures()
	coupon1 := 1

	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e1", OccurredAt: time.Now().UTC(), SourceSystem: event.SourceDCS,
		EventType: event.CouponFlown, TicketNumber: "3333333333", CouponNumber: &coupon1,
	}))

	result, err := matcher.RunMatching(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.UnmatchedFlown)
}

func TestAgeSuspense_IsCallBasedNotWallClock(t *testing.T) {
	ctx := context.Background()
	tickets, matcher := newTestFixtures()
	coupon1 := 1

	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e1", OccurredAt: time.Now().UTC(), SourceSystem: event.SourcePSS,
		EventType: event.TicketIssued, TicketNumber: "4444444444", CouponNumber: &coupon1,
	}))
	_, err := matcher.RunMatching(ctx)
	require.NoError(t, err)

	for i := 0; i < 31; i++ {
		aged, err := matcher.AgeSuspense(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, aged)
	}

	items, err := matcher.GetSuspenseItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, coupon.StatusSuspense, items[0].Status)
	require.Equal(t, 31, items[0].DaysInSuspense)
}

func TestAgeSuspense_EscalatesAfter90Days(t *testing.T) {
	ctx := context.Background()
	tickets, matcher := newTestFixtures()
	coupon1 := 1

	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e1", OccurredAt: time.Now().UTC(), SourceSystem: event.SourcePSS,
		EventType: event.TicketIssued, TicketNumber: "5555555555", CouponNumber: &coupon1,
	}))
	_, err := matcher.RunMatching(ctx)
	require.NoError(t, err)

	for i := 0; i < 91; i++ {
		_, err := matcher.AgeSuspense(ctx)
		require.NoError(t, err)
	}

	items, err := matcher.GetSuspenseItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Escalation required (>90 days).", items[0].Notes)
}

func TestGetSuspenseItems_SortedByDaysDescending(t *testing.T) {
	ctx := context.Background()
	tickets, matcher := newTestFixtures()
	c1, c2 := 1, 2

	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e1", OccurredAt: time.Now().UTC(), SourceSystem: event.SourcePSS,
		EventType: event.TicketIssued, TicketNumber: "6666666666", CouponNumber: &c1,
	}))
	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e2", OccurredAt: time.Now().UTC(), SourceSystem: event.SourcePSS,
		EventType: event.TicketIssued, TicketNumber: "6666666667", CouponNumber: &c2,
	}))
	_, err := matcher.RunMatching(ctx)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := matcher.AgeSuspense(ctx)
		require.NoError(t, err)
	}
	// Both rows have been aged by the same five calls, so their days tie and
	// the order must still be non-increasing.
	rows, err := matcher.GetSuspenseItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.GreaterOrEqual(t, rows[0].DaysInSuspense, rows[1].DaysInSuspense)
}

func TestRunMatching_MatchedPairLeavesNoSuspenseItems(t *testing.T) {
	ctx := context.Background()
	tickets, matcher := newTestFixtures()
	coupon1 := 1

	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e1", OccurredAt: time.Now().UTC(), SourceSystem: event.SourcePSS,
		EventType: event.TicketIssued, TicketNumber: "7777777777", CouponNumber: &coupon1,
	}))
	require.NoError(t, tickets.Append(ctx, event.Canonical{
		EventID: "e2", OccurredAt: time.Now().UTC(), SourceSystem: event.SourceDCS,
		EventType: event.CouponFlown, TicketNumber: "7777777777", CouponNumber: &coupon1,
	}))

	_, err := matcher.RunMatching(ctx)
	require.NoError(t, err)

	rows, err := matcher.GetSuspenseItems(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, rows)
}
