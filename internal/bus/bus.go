package bus

import "github.com/flightledger/core/internal/domain/event"

// Bus is the publish surface every pipeline stage depends on. Sinks never
// see a pointer to the caller's event; Publish clones defensively.
type Bus interface {
	Publish(e event.Canonical) error
	PublishMany(events []event.Canonical) error
	Close() error
}
