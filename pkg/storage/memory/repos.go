package memory

// Repositories bundles one store of each kind over a single shared Ledger,
// convenient for wiring the engine's default in-memory backend.
type Repositories struct {
	Ledger          *Ledger
	TicketEvents    *TicketEventStore
	TicketState     *TicketCurrentStateStore
	CouponMatches   *CouponMatchStore
	Recon           *ReconStore
	Audit           *AuditStore
	DagRuns         *DagRunStore
	TaskRuns        *TaskRunStore
	Settlements     *SettlementStore
}

// NewRepositories builds a full set of in-memory repositories sharing one
// Ledger and its mutex.
func NewRepositories() *Repositories {
	l := NewLedger()
	return &Repositories{
		Ledger:        l,
		TicketEvents:  NewTicketEventStore(l),
		TicketState:   NewTicketCurrentStateStore(l),
		CouponMatches: NewCouponMatchStore(l),
		Recon:         NewReconStore(l),
		Audit:         NewAuditStore(l),
		DagRuns:       NewDagRunStore(l),
		TaskRuns:      NewTaskRunStore(l),
		Settlements:   NewSettlementStore(l),
	}
}
