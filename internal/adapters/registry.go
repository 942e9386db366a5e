package adapters

import "github.com/flightledger/core/internal/domain/event"

// ForSource returns the adapter responsible for a source system.
func ForSource(source event.SourceSystem) Adapter {
	switch source {
	case event.SourcePSS:
		return NewPSS()
	case event.SourceDCS:
		return NewDCS()
	case event.SourceGDS:
		return NewGDS()
	case event.SourceOTA:
		return NewOTA()
	case event.SourceInterline:
		return NewInterline()
	default:
		return nil
	}
}
