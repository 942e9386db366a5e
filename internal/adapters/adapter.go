// Package adapters normalizes heterogeneous source-system payloads into the
// canonical event model. Each adapter is pure and deterministic: the same
// payload always yields the same events, and a malformed payload fails
// locally without aborting the rest of a batch.
package adapters

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

// Adapter normalizes one source system's wire payload to canonical events.
type Adapter interface {
	Parse(payload []byte) ([]event.Canonical, error)
}

// newEventID and newOccurredAt stamp defaults for fields every source
// payload leaves implicit, mirroring the canonical model's default factories.
func newEventID() string       { return uuid.NewString() }
func newOccurredAt() time.Time { return time.Now().UTC() }

// parseOptionalJSONDecimal coerces a raw JSON number, string, or absent/null
// field into an exact decimal, never into zero.
func parseOptionalJSONDecimal(source string, raw json.RawMessage) (*decimal.Decimal, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return nil, nil
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return nil, ledgererrors.Parse(source, "invalid decimal: "+text).WithCause(err)
	}
	return &v, nil
}
