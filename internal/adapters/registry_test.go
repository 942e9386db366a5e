package adapters

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flightledger/core/internal/domain/event"
)

func TestForSource(t *testing.T) {
	require.IsType(t, &PSS{}, ForSource(event.SourcePSS))
	require.IsType(t, &DCS{}, ForSource(event.SourceDCS))
	require.IsType(t, &GDS{}, ForSource(event.SourceGDS))
	require.IsType(t, &OTA{}, ForSource(event.SourceOTA))
	require.IsType(t, &Interline{}, ForSource(event.SourceInterline))
	require.Nil(t, ForSource(event.SourceSystem("bogus")))
}
