package bus

import (
	"testing"

	"github.com/stretchr/testify/require"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/pkg/config"
)

func TestBuildFromConfig_Memory(t *testing.T) {
	b, mem, err := BuildFromConfig(config.BusConfig{Backend: "memory"}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NotNil(t, mem)
}

func TestBuildFromConfig_Remote(t *testing.T) {
	b, mem, err := BuildFromConfig(config.BusConfig{Backend: "remote", Bootstrap: "localhost:6379", ClientID: "core"}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NotNil(t, mem)
	_, ok := b.(*FanoutBus)
	require.True(t, ok)
}

func TestBuildFromConfig_UnsupportedBackend(t *testing.T) {
	_, _, err := BuildFromConfig(config.BusConfig{Backend: "kafka"}, testLogger())
	require.Error(t, err)
	require.True(t, ledgererrors.Is(err, ledgererrors.KindConfig))
}
