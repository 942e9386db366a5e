package storage

import "context"

// Repositories bundles one store of each kind behind its narrow interface,
// letting callers depend on the repository abstraction without knowing
// which backend is wired underneath.
type Repositories struct {
	TicketEvents  TicketEventStore
	TicketState   TicketCurrentStateStore
	CouponMatches CouponMatchStore
	Recon         ReconStore
	Audit         AuditStore
	DagRuns       DagRunStore
	TaskRuns      TaskRunStore
	Settlements   SettlementStore

	// Closer releases any underlying connection pool. nil for the
	// in-memory backend, which owns nothing to release.
	Closer func() error
}

// Close releases the backend's underlying resources, if any.
func (r *Repositories) Close() error {
	if r.Closer == nil {
		return nil
	}
	return r.Closer()
}

// ResetAll clears every store except the DAG run and task run history, used
// between demo seeding runs and by tests.
func (r *Repositories) ResetAll(ctx context.Context) error {
	resetters := []interface {
		Reset(ctx context.Context) error
	}{r.TicketEvents, r.TicketState, r.CouponMatches, r.Recon, r.Audit, r.Settlements}
	for _, resetter := range resetters {
		if err := resetter.Reset(ctx); err != nil {
			return err
		}
	}
	return nil
}
