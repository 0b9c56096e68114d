package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	// BookingRepository is the system of record for bookings. Reads return
	// bookings joined with their patient, ordered by date then time.
	BookingRepository interface {
		List(ctx context.Context) ([]*model.Booking, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
		Update(ctx context.Context, id uuid.UUID, update model.BookingUpdate) (*model.Booking, error)
		Delete(ctx context.Context, id uuid.UUID) error
		ListByStatus(ctx context.Context, status model.Status) ([]*model.Booking, error)
		ListByType(ctx context.Context, bookingType model.BookingType) ([]*model.Booking, error)
		ListByCreator(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error)
	}

	// PatientRepository lists patients by full name.
	PatientRepository interface {
		List(ctx context.Context) ([]*model.Patient, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Create(ctx context.Context, patient *model.Patient) (*model.Patient, error)
		Update(ctx context.Context, id uuid.UUID, update model.PatientUpdate) (*model.Patient, error)
		Delete(ctx context.Context, id uuid.UUID) error
		Search(ctx context.Context, query string) ([]*model.Patient, error)
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Patient, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEvents returns pending events and failed events whose retry time has passed.
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Repositories is the set handed to services by the storage layer.
type Repositories struct {
	Bookings BookingRepository
	Patients PatientRepository
	Outbox   OutboxRepository
}
