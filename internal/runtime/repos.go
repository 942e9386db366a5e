package runtime

import (
	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/pkg/config"
	"github.com/flightledger/core/pkg/storage"
	"github.com/flightledger/core/pkg/storage/memory"
	"github.com/flightledger/core/pkg/storage/postgres"
)

// buildRepositories wires the configured storage backend into the narrow
// interfaces every component depends on.
func buildRepositories(cfg config.StorageConfig) (*storage.Repositories, error) {
	switch config.StorageBackend(cfg.Backend) {
	case config.StorageBackendMemory, "":
		mem := memory.NewRepositories()
		return &storage.Repositories{
			TicketEvents:  mem.TicketEvents,
			TicketState:   mem.TicketState,
			CouponMatches: mem.CouponMatches,
			Recon:         mem.Recon,
			Audit:         mem.Audit,
			DagRuns:       mem.DagRuns,
			TaskRuns:      mem.TaskRuns,
			Settlements:   mem.Settlements,
		}, nil
	case config.StorageBackendRemote:
		ledger, err := postgres.Connect(cfg)
		if err != nil {
			return nil, err
		}
		return &storage.Repositories{
			TicketEvents:  postgres.NewTicketEventStore(ledger),
			TicketState:   postgres.NewTicketCurrentStateStore(ledger),
			CouponMatches: postgres.NewCouponMatchStore(ledger),
			Recon:         postgres.NewReconStore(ledger),
			Audit:         postgres.NewAuditStore(ledger),
			DagRuns:       postgres.NewDagRunStore(ledger),
			TaskRuns:      postgres.NewTaskRunStore(ledger),
			Settlements:   postgres.NewSettlementStore(ledger),
			Closer:        ledger.Close,
		}, nil
	default:
		return nil, ledgererrors.Config("unsupported FLIGHTLEDGER_STORAGE_BACKEND: " + cfg.Backend)
	}
}
