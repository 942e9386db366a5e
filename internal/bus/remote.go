package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/domain/event"
)

// RemoteBus publishes canonical events onto Redis Streams, one stream per
// topic, standing in for an external transport the core treats as an
// optional collaborator.
type RemoteBus struct {
	client   *redis.Client
	clientID string
	timeout  time.Duration
}

func NewRemoteBus(bootstrap, clientID string) *RemoteBus {
	return &RemoteBus{
		client:   redis.NewClient(&redis.Options{Addr: bootstrap, ClientName: clientID}),
		clientID: clientID,
		timeout:  5 * time.Second,
	}
}

func (b *RemoteBus) Publish(e event.Canonical) error {
	topic, ok := TopicFor(e.EventType)
	if !ok {
		topic = "unknown"
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return ledgererrors.Backend("publish", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"event_id":      e.EventID,
			"ticket_number": e.TicketNumber,
			"payload":       string(payload),
		},
	}).Err(); err != nil {
		return ledgererrors.Backend("publish", err)
	}
	return nil
}

func (b *RemoteBus) PublishMany(events []event.Canonical) error {
	for _, e := range events {
		if err := b.Publish(e); err != nil {
			return err
		}
	}
	return nil
}

func (b *RemoteBus) Close() error {
	return b.client.Close()
}
