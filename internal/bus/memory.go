package bus

import (
	"sync"

	"github.com/flightledger/core/internal/domain/event"
)

// InMemoryBus is an ordered topic → append-only event list preserving
// publish order. Safe for concurrent use.
type InMemoryBus struct {
	mu     sync.RWMutex
	topics map[string][]event.Canonical
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{topics: make(map[string][]event.Canonical)}
}

func (b *InMemoryBus) Publish(e event.Canonical) error {
	topic, ok := TopicFor(e.EventType)
	if !ok {
		topic = "unknown"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[topic] = append(b.topics[topic], e.Clone())
	return nil
}

func (b *InMemoryBus) PublishMany(events []event.Canonical) error {
	for _, e := range events {
		if err := b.Publish(e); err != nil {
			return err
		}
	}
	return nil
}

func (b *InMemoryBus) Close() error { return nil }

// Topic returns a copy of the events published to topic, in publish order.
func (b *InMemoryBus) Topic(topic string) []event.Canonical {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.topics[topic]
	out := make([]event.Canonical, len(events))
	copy(out, events)
	return out
}
