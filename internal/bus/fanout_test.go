package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flightledger/core/internal/domain/event"
	"github.com/flightledger/core/pkg/config"
	"github.com/flightledger/core/pkg/logger"
)

type fakeSink struct {
	published []event.Canonical
	failEvery error
	closed    bool
	closeErr  error
}

func (s *fakeSink) Publish(e event.Canonical) error {
	if s.failEvery != nil {
		return s.failEvery
	}
	s.published = append(s.published, e)
	return nil
}

func (s *fakeSink) PublishMany(events []event.Canonical) error {
	for _, e := range events {
		_ = s.Publish(e)
	}
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return s.closeErr
}

func testLogger() *logger.Logger {
	return logger.New(config.LoggingConfig{Level: "error", Format: "json"})
}

func TestFanoutBus_IsolatesFailingSink(t *testing.T) {
	good := &fakeSink{}
	bad := &fakeSink{failEvery: errors.New("sink down")}

	fan := NewFanoutBus(testLogger(), good, bad)
	err := fan.Publish(event.Canonical{EventID: "1", EventType: event.TicketIssued})

	require.NoError(t, err)
	require.Len(t, good.published, 1)
}

func TestFanoutBus_CloseClosesAllSinksAndReturnsFirstError(t *testing.T) {
	first := &fakeSink{closeErr: errors.New("boom")}
	second := &fakeSink{}

	fan := NewFanoutBus(testLogger(), first, second)
	err := fan.Close()

	require.Error(t, err)
	require.True(t, first.closed)
	require.True(t, second.closed)
}
