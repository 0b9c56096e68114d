package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/datastore"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/queueview"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/validator"
)

type Options struct {
	View      *datastore.Store
	Validator validator.Validator
	Logger    *logger.Logger
}

type Service struct {
	repo      repository.BookingRepository
	patients  repository.PatientRepository
	view      *datastore.Store
	validator validator.Validator
	logger    *logger.Logger
}

func NewService(repo repository.BookingRepository, patients repository.PatientRepository, opts Options) *Service {
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Service{
		repo:      repo,
		patients:  patients,
		view:      opts.View,
		validator: opts.Validator,
		logger:    opts.Logger,
	}
}

// ListFilter selects bookings. At most one field is honoured, in field order.
type ListFilter struct {
	CreatedBy   *uuid.UUID
	Status      *model.Status
	BookingType *model.BookingType
}

func (s *Service) CreateBooking(ctx context.Context, req *model.CreateBookingRequest, createdBy uuid.UUID) (*model.Booking, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.BadRequest("patient does not exist", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to get patient: %w", err))
	}

	booking := &model.Booking{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		BookingType:     req.BookingType,
		Status:          req.Status,
		Notes:           req.Notes,
		CreatedBy:       createdBy,
		ProviderName:    req.ProviderName,
		ChiefComplaint:  req.ChiefComplaint,
		RoomLocation:    req.RoomLocation,
		IsAdhoc:         req.IsAdhoc,
	}
	if booking.BookingType == "" {
		booking.BookingType = model.BookingTypeOnline
	}
	if booking.Status == "" {
		booking.Status = model.StatusPending
	}

	persist := func(ctx context.Context) (*model.Booking, error) {
		return s.repo.Create(ctx, booking)
	}

	var created *model.Booking
	var err error
	if s.view != nil {
		tentative := *booking
		res := s.view.AddBookingOptimistic(ctx, &tentative, persist)
		created, err = res.Booking, res.Err
	} else {
		created, err = persist(ctx)
	}
	if err != nil {
		s.logger.Error(err, "Failed to create booking", "patient_id", req.PatientID.String())
		return nil, apperrors.Internal(fmt.Errorf("failed to create booking: %w", err))
	}

	s.logger.Info("Booking created",
		"booking_id", created.ID.String(),
		"booking_type", string(created.BookingType),
		"status", string(created.Status))
	return created, nil
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translate("failed to get booking", err)
	}
	return booking, nil
}

func (s *Service) ListBookings(ctx context.Context, filter ListFilter) ([]*model.Booking, error) {
	var bookings []*model.Booking
	var err error
	switch {
	case filter.CreatedBy != nil:
		bookings, err = s.repo.ListByCreator(ctx, *filter.CreatedBy)
	case filter.Status != nil:
		bookings, err = s.repo.ListByStatus(ctx, *filter.Status)
	case filter.BookingType != nil:
		bookings, err = s.repo.ListByType(ctx, *filter.BookingType)
	default:
		bookings, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list bookings: %w", err))
	}
	return bookings, nil
}

// UpdateBooking applies a partial update. Status writes here bypass the
// workflow table and are restricted to admins by the router.
func (s *Service) UpdateBooking(ctx context.Context, id uuid.UUID, update model.BookingUpdate) (*model.Booking, error) {
	if err := s.validator.Validate(update); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	persist := func(ctx context.Context) (*model.Booking, error) {
		return s.repo.Update(ctx, id, update)
	}

	var updated *model.Booking
	var err error
	if s.view != nil {
		res := s.view.UpdateBookingOptimistic(ctx, id, update, persist)
		updated, err = res.Booking, res.Err
	} else {
		updated, err = persist(ctx)
	}
	if err != nil {
		return nil, translate("failed to update booking", err)
	}
	return updated, nil
}

func (s *Service) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	persist := func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	}

	var err error
	if s.view != nil {
		err = s.view.DeleteBookingOptimistic(ctx, id, persist).Err
	} else {
		err = persist(ctx)
	}
	if err != nil {
		return translate("failed to delete booking", err)
	}
	s.logger.Info("Booking deleted", "booking_id", id.String())
	return nil
}

// Stats counts every booking by status and type.
func (s *Service) Stats(ctx context.Context) (model.BookingStats, error) {
	bookings, err := s.repo.List(ctx)
	if err != nil {
		return model.BookingStats{}, apperrors.Internal(fmt.Errorf("failed to list bookings: %w", err))
	}
	return queueview.ComputeStats(bookings), nil
}

func translate(msg string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("booking", err)
	}
	return apperrors.Internal(fmt.Errorf("%s: %w", msg, err))
}
