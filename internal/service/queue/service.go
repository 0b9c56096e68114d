package queue

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
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

// Per-stage minutes used by EstimatedWaitTime.
const (
	providerMinutes         = 15
	readyForProviderMinutes = 10
	intakeMinutes           = 5
)

// EventEmitter records confirmed status changes.
type EventEmitter interface {
	BookingStatusChanged(ctx context.Context, before, after *model.Booking, action string, forced bool) error
}

// Notifier surfaces transition outcomes to dashboard users.
type Notifier interface {
	Success(title, message string, booking *model.Booking) model.Notification
	Error(title, message string, booking *model.Booking) model.Notification
}

type Options struct {
	// View, when set, receives every write optimistically and is rolled back
	// when the store rejects it.
	View     *datastore.Store
	Events   EventEmitter
	Notifier Notifier
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

type Service struct {
	bookings repository.BookingRepository
	view     *datastore.Store
	events   EventEmitter
	notifier Notifier
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(bookings repository.BookingRepository, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Service{
		bookings: bookings,
		view:     opts.View,
		events:   opts.Events,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

func (s *Service) MoveToIntake(ctx context.Context, id uuid.UUID) (datastore.Result, error) {
	return s.Transition(ctx, id, ActionMoveToIntake)
}

func (s *Service) MoveToReadyForProvider(ctx context.Context, id uuid.UUID) (datastore.Result, error) {
	return s.Transition(ctx, id, ActionMoveToReadyForProvider)
}

func (s *Service) StartCall(ctx context.Context, id uuid.UUID) (datastore.Result, error) {
	return s.Transition(ctx, id, ActionStartCall)
}

func (s *Service) CompleteCall(ctx context.Context, id uuid.UUID) (datastore.Result, error) {
	return s.Transition(ctx, id, ActionCompleteCall)
}

func (s *Service) DischargePatient(ctx context.Context, id uuid.UUID) (datastore.Result, error) {
	return s.Transition(ctx, id, ActionDischargePatient)
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (datastore.Result, error) {
	return s.Transition(ctx, id, ActionCancelAppointment)
}

func (s *Service) RemoveFromQueue(ctx context.Context, id uuid.UUID) (datastore.Result, error) {
	return s.Transition(ctx, id, ActionRemoveFromQueue)
}

// Transition applies action to the booking if the workflow table allows it
// from the booking's current status. Rejected transitions never reach the store.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, action Action) (datastore.Result, error) {
	rule, ok := transitions[action]
	if !ok {
		return datastore.Result{}, apperrors.BadRequest("unknown queue action", fmt.Errorf("%w: %s", ErrUnknownAction, action))
	}

	current, err := s.current(ctx, id, string(action), rule.failure)
	if err != nil {
		return datastore.Result{}, err
	}

	if !CanTransition(action, current.Status) {
		s.count(string(action), "rejected")
		err := fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, current.Status)
		s.logger.Warn("Rejected status transition",
			"booking_id", id.String(),
			"action", string(action),
			"status", string(current.Status))
		return datastore.Result{}, apperrors.Conflict(
			fmt.Sprintf("cannot %s a booking that is %s", action, model.GetStatusLabel(string(current.Status))), err)
	}

	return s.write(ctx, current, rule.to, string(action), rule.failure, rule.success, false)
}

// ForceSetStatus writes any valid status without consulting the workflow table.
func (s *Service) ForceSetStatus(ctx context.Context, id uuid.UUID, status model.Status) (datastore.Result, error) {
	if !status.Valid() {
		return datastore.Result{}, apperrors.BadRequest("invalid status", fmt.Errorf("unknown status: %s", status))
	}

	const failure = "Failed to update booking status"
	current, err := s.current(ctx, id, actionForceSet, failure)
	if err != nil {
		return datastore.Result{}, err
	}

	s.logger.Warn("Forcing booking status",
		"booking_id", id.String(),
		"from", string(current.Status),
		"to", string(status))
	return s.write(ctx, current, status, actionForceSet, failure, "status set to "+model.GetStatusLabel(string(status)), true)
}

func (s *Service) current(ctx context.Context, id uuid.UUID, action, failure string) (*model.Booking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.count(action, "not_found")
		return nil, apperrors.NotFound("booking", err)
	}
	if err != nil {
		s.count(action, "failed")
		s.logger.Error(err, "Failed to get booking", "booking_id", id.String(), "action", action)
		s.notifyError(failure, nil)
		return nil, apperrors.Internal(fmt.Errorf("failed to get booking: %w", err))
	}
	return booking, nil
}

func (s *Service) write(ctx context.Context, current *model.Booking, to model.Status, action, failure, success string, forced bool) (datastore.Result, error) {
	patch := model.StatusUpdate(to)
	persist := func(ctx context.Context) (*model.Booking, error) {
		return s.bookings.Update(ctx, current.ID, patch)
	}

	var res datastore.Result
	if s.view != nil {
		res = s.view.ApplyBooking(ctx, current.ID, patch, persist)
	} else {
		res = datastore.Result{Outcome: datastore.RolledBack, Previous: current}
		if updated, err := persist(ctx); err != nil {
			res.Err = err
		} else {
			res = datastore.Result{Outcome: datastore.Confirmed, Booking: updated, Previous: current}
		}
	}

	if !res.Confirmed() {
		s.count(action, "failed")
		s.logger.Error(res.Err, "Failed to update booking status",
			"booking_id", current.ID.String(),
			"action", action,
			"status", string(to))
		s.notifyError(failure, current)
		if errors.Is(res.Err, repository.ErrNotFound) {
			return res, apperrors.NotFound("booking", res.Err)
		}
		return res, apperrors.Internal(fmt.Errorf("failed to update booking status: %w", res.Err))
	}

	s.count(action, "confirmed")
	s.logger.Info("Booking status updated",
		"booking_id", current.ID.String(),
		"action", action,
		"from", string(current.Status),
		"to", string(to))

	if s.events != nil {
		if err := s.events.BookingStatusChanged(ctx, current, res.Booking, action, forced); err != nil {
			s.logger.Error(err, "Failed to record status change", "booking_id", current.ID.String())
		}
	}
	if s.notifier != nil {
		s.notifier.Success("Status updated", patientName(res.Booking)+" "+success, res.Booking)
	}
	return res, nil
}

func patientName(b *model.Booking) string {
	if b != nil && b.Patient != nil && b.Patient.FullName != "" {
		return b.Patient.FullName
	}
	return "Patient"
}

func (s *Service) notifyError(message string, b *model.Booking) {
	if s.notifier != nil {
		s.notifier.Error("Error", message, b)
	}
}

func (s *Service) count(action, outcome string) {
	if s.metrics != nil {
		s.metrics.QueueTransitions.WithLabelValues(action, outcome).Inc()
	}
}

func (s *Service) online(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := s.bookings.ListByType(ctx, model.BookingTypeOnline)
	if err != nil {
		return nil, fmt.Errorf("failed to list online bookings: %w", err)
	}
	model.SortBySchedule(bookings)
	return bookings, nil
}

// AutoAdvanceQueue moves the earliest confirmed online booking into intake
// when intake is empty. It reports whether a booking was moved.
func (s *Service) AutoAdvanceQueue(ctx context.Context) (bool, error) {
	bookings, err := s.online(ctx)
	if err != nil {
		s.logger.Error(err, "Failed to auto-advance queue")
		s.notifyError("Failed to auto-advance queue", nil)
		return false, apperrors.Internal(err)
	}

	var next *model.Booking
	for _, b := range bookings {
		if b.Status == model.StatusIntake {
			return false, nil
		}
		if next == nil && b.Status == model.StatusConfirmed {
			next = b
		}
	}
	if next == nil {
		return false, nil
	}

	if _, err := s.MoveToIntake(ctx, next.ID); err != nil {
		return false, err
	}
	if s.metrics != nil {
		s.metrics.QueueAutoAdvances.Inc()
	}
	return true, nil
}

// NextPatient returns the earliest ready-for-provider online booking, or nil.
// Bookings with identical schedules keep the order the store listed them in.
func (s *Service) NextPatient(ctx context.Context) (*model.Booking, error) {
	bookings, err := s.online(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	for _, b := range bookings {
		if b.Status == model.StatusReadyForProvider {
			return b, nil
		}
	}
	return nil, nil
}

// EstimatedWaitTime returns the expected wait in minutes for booking id. The
// target may be of any booking type; only online bookings are counted ahead of
// it. Unknown bookings and bookings already with the provider wait 0 minutes.
func (s *Service) EstimatedWaitTime(ctx context.Context, id uuid.UUID) (int, error) {
	target, err := s.bookings.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Internal(fmt.Errorf("failed to get booking: %w", err))
	}
	if target.Status == model.StatusProvider {
		return 0, nil
	}

	bookings, err := s.online(ctx)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	var stats model.QueueStats
	for _, b := range bookings {
		stats.Add(b.Status)
	}
	return providerMinutes*stats.Provider +
		readyForProviderMinutes*stats.ReadyForProvider +
		intakeMinutes*stats.Intake, nil
}

// Stats counts online bookings per status and publishes the queue gauges.
func (s *Service) Stats(ctx context.Context) (model.QueueStats, error) {
	bookings, err := s.online(ctx)
	if err != nil {
		return model.QueueStats{}, apperrors.Internal(err)
	}
	stats := queueview.ComputeQueueStats(bookings)
	if s.metrics != nil {
		counts := queueview.ComputeStats(bookings).ByStatus
		for _, st := range model.AllStatuses() {
			s.metrics.QueueSize.WithLabelValues(string(st)).Set(float64(counts[st]))
		}
	}
	return stats, nil
}

// QueueByStatus groups the active online queue by stage.
func (s *Service) QueueByStatus(ctx context.Context) (model.QueueGroups, error) {
	bookings, err := s.online(ctx)
	if err != nil {
		return model.QueueGroups{}, apperrors.Internal(err)
	}
	return queueview.ActiveQueue(bookings), nil
}
