package bus

import (
	"fmt"

	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/pkg/logger"
)

// FanoutBus forwards every publish to N sinks. A sink that returns an error
// is logged and skipped; it never blocks the remaining sinks.
type FanoutBus struct {
	sinks []Bus
	log   *logger.Logger
}

func NewFanoutBus(log *logger.Logger, sinks ...Bus) *FanoutBus {
	return &FanoutBus{sinks: sinks, log: log}
}

func (b *FanoutBus) Publish(e event.Canonical) error {
	for i, sink := range b.sinks {
		if err := sink.Publish(e); err != nil {
			b.log.WithFields(map[string]interface{}{
				"sink_index": i,
				"event_id":   e.EventID,
				"error":      err.Error(),
			}).Error("bus sink publish failed")
		}
	}
	return nil
}

func (b *FanoutBus) PublishMany(events []event.Canonical) error {
	for _, e := range events {
		if err := b.Publish(e); err != nil {
			return err
		}
	}
	return nil
}

func (b *FanoutBus) Close() error {
	var firstErr error
	for i, sink := range b.sinks {
		if err := sink.Close(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("sink %d close: %w", i, err)
			}
			b.log.WithField("sink_index", i).Warn("bus sink close failed")
		}
	}
	return firstErr
}
