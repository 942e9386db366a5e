package bus

import (
	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/pkg/config"
	"github.com/flightledger/core/pkg/logger"
)

// BuildFromConfig constructs the bus the engine publishes through. memory
// always participates so in-process readers (matching, recon) see every
// event regardless of the configured transport; remote is fanned in only
// when FLIGHTLEDGER_BUS_BACKEND=remote.
func BuildFromConfig(cfg config.BusConfig, log *logger.Logger) (Bus, *InMemoryBus, error) {
	mem := NewInMemoryBus()

	switch config.BusBackend(cfg.Backend) {
	case config.BusBackendMemory, "":
		return mem, mem, nil
	case config.BusBackendRemote:
		remote := NewRemoteBus(cfg.Bootstrap, cfg.ClientID)
		return NewFanoutBus(log, mem, remote), mem, nil
	default:
		return nil, nil, ledgererrors.Config("unsupported FLIGHTLEDGER_BUS_BACKEND: " + cfg.Backend)
	}
}
