package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
)

// Service records domain events in the outbox. The worker publishes them.
type Service struct {
	outboxRepo repository.OutboxRepository
	logger     *logger.Logger
	now        func() time.Time
}

func NewService(outboxRepo repository.OutboxRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		outboxRepo: outboxRepo,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := s.now()
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	s.logger.Debug("Event recorded", "event_id", event.ID.String(), "event_type", eventType)
	return nil
}

// BookingStatusChanged records a booking.status_changed event for a confirmed write.
func (s *Service) BookingStatusChanged(ctx context.Context, before, after *model.Booking, action string, forced bool) error {
	payload := model.StatusChangedPayload{
		BookingID:       after.ID,
		PatientID:       after.PatientID,
		From:            before.Status,
		To:              after.Status,
		Action:          action,
		Forced:          forced,
		BookingType:     after.BookingType,
		AppointmentDate: after.AppointmentDate,
		AppointmentTime: after.AppointmentTime,
		ProviderName:    after.ProviderName,
		OccurredAt:      s.now(),
	}
	patient := after.Patient
	if patient == nil {
		patient = before.Patient
	}
	if patient != nil {
		payload.PatientName = patient.FullName
		payload.PatientEmail = patient.Email
	}
	return s.Emit(ctx, model.EventBookingStatusChanged, payload)
}
