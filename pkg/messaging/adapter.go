package messaging

import (
	"context"
	"encoding/json"

	"github.com/jwalitptl/telehealth-api/pkg/logger"
)

// BrokerAdapter exposes a Broker as a handler-based MessageBroker.
type BrokerAdapter struct {
	broker Broker
	logger *logger.Logger
}

func NewBrokerAdapter(broker Broker, log *logger.Logger) MessageBroker {
	if log == nil {
		log = logger.Nop()
	}
	return &BrokerAdapter{broker: broker, logger: log}
}

// Publish forwards an already encoded JSON payload without re-encoding it.
func (a *BrokerAdapter) Publish(ctx context.Context, topic string, payload []byte) error {
	return a.broker.Publish(ctx, topic, json.RawMessage(payload))
}

func (a *BrokerAdapter) Close() error {
	return a.broker.Close()
}

// Subscribe calls handler for every message on topic until ctx ends. Handler
// errors are logged and the message is dropped.
func (a *BrokerAdapter) Subscribe(ctx context.Context, topic string, handler func([]byte) error) error {
	msgChan, err := a.broker.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgChan {
			if err := handler(msg); err != nil {
				a.logger.Error(err, "Failed to handle message", "topic", topic)
			}
		}
	}()

	return nil
}
