package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/telehealth-api/internal/email"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/messaging"
)

// StatusMailer emails patients when their booking changes status.
type StatusMailer struct {
	broker messaging.MessageBroker
	email  email.Service
	logger *logger.Logger
}

func NewStatusMailer(broker messaging.MessageBroker, emailSvc email.Service, log *logger.Logger) *StatusMailer {
	if log == nil {
		log = logger.Nop()
	}
	return &StatusMailer{
		broker: broker,
		email:  emailSvc,
		logger: log,
	}
}

// Start subscribes to status change events. Delivery stops when ctx ends.
func (m *StatusMailer) Start(ctx context.Context) error {
	if err := m.broker.Subscribe(ctx, model.EventBookingStatusChanged, func(msg []byte) error {
		return m.Handle(ctx, msg)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", model.EventBookingStatusChanged, err)
	}
	m.logger.Info("Status mailer subscribed", "channel", model.EventBookingStatusChanged)
	return nil
}

func (m *StatusMailer) Handle(ctx context.Context, msg []byte) error {
	var change model.StatusChangedPayload
	if err := json.Unmarshal(msg, &change); err != nil {
		return fmt.Errorf("failed to decode status change: %w", err)
	}
	if err := m.email.SendStatusUpdate(ctx, change); err != nil {
		return fmt.Errorf("failed to email booking %s: %w", change.BookingID, err)
	}
	return nil
}
