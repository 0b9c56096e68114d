package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/datastore"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/repository/memory"
	"github.com/jwalitptl/telehealth-api/internal/service/event"
	"github.com/jwalitptl/telehealth-api/internal/service/notification"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
)

var errStoreDown = errors.New("store unavailable")

// countingBookings counts Update calls and can be told to fail them.
type countingBookings struct {
	repository.BookingRepository
	updates    int
	failUpdate error
}

func (c *countingBookings) Update(ctx context.Context, id uuid.UUID, update model.BookingUpdate) (*model.Booking, error) {
	c.updates++
	if c.failUpdate != nil {
		return nil, c.failUpdate
	}
	return c.BookingRepository.Update(ctx, id, update)
}

type fixture struct {
	repos    repository.Repositories
	bookings *countingBookings
	notes    *notification.Service
	svc      *Service
	patient  *model.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewStore().Repositories()
	jane, err := repos.Patients.Create(context.Background(), &model.Patient{FullName: "Jane Doe", Email: "jane@example.com"})
	require.NoError(t, err)

	counting := &countingBookings{BookingRepository: repos.Bookings}
	notes := notification.NewService(time.Minute, time.Minute)
	return &fixture{
		repos:    repos,
		bookings: counting,
		notes:    notes,
		patient:  jane,
		svc: NewService(counting, Options{
			Events:   event.NewService(repos.Outbox, nil),
			Notifier: notes,
		}),
	}
}

func (f *fixture) add(t *testing.T, tm string, status model.Status, bookingType model.BookingType) *model.Booking {
	t.Helper()
	b, err := f.repos.Bookings.Create(context.Background(), &model.Booking{
		PatientID:       f.patient.ID,
		AppointmentDate: "2024-01-15",
		AppointmentTime: tm,
		BookingType:     bookingType,
		Status:          status,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) status(t *testing.T, id uuid.UUID) model.Status {
	t.Helper()
	b, err := f.repos.Bookings.Get(context.Background(), id)
	require.NoError(t, err)
	return b.Status
}

func TestCanTransition(t *testing.T) {
	for _, from := range model.AllStatuses() {
		want := from == model.StatusPending || from == model.StatusConfirmed || from == model.StatusIntake
		assert.Equal(t, want, CanTransition(ActionMoveToIntake, from), "move-to-intake from %s", from)

		assert.Equal(t, from != model.StatusDischarged, CanTransition(ActionCancelAppointment, from), "cancel from %s", from)
	}

	assert.True(t, CanTransition(ActionStartCall, model.StatusReadyForProvider))
	assert.False(t, CanTransition(ActionStartCall, model.StatusIntake))
	assert.True(t, CanTransition(ActionRemoveFromQueue, model.StatusProvider))
	assert.False(t, CanTransition(ActionRemoveFromQueue, model.StatusPending))
	assert.False(t, CanTransition(Action("teleport"), model.StatusPending))

	target, ok := ActionCompleteCall.Target()
	assert.True(t, ok)
	assert.Equal(t, model.StatusReadyForDischarge, target)

	assert.Equal(t, []Action{ActionDischargePatient, ActionCancelAppointment}, AvailableActions(model.StatusReadyForDischarge))
	assert.Empty(t, AvailableActions(model.StatusDischarged))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("start-call")
	require.NoError(t, err)
	assert.Equal(t, ActionStartCall, a)

	_, err = ParseAction("teleport")
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Len(t, Actions(), 7)
}

func TestService_FullWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.add(t, "09:00", model.StatusConfirmed, model.BookingTypeOnline)

	steps := []struct {
		run  func(context.Context, uuid.UUID) (datastore.Result, error)
		want model.Status
	}{
		{f.svc.MoveToIntake, model.StatusIntake},
		{f.svc.MoveToReadyForProvider, model.StatusReadyForProvider},
		{f.svc.StartCall, model.StatusProvider},
		{f.svc.CompleteCall, model.StatusReadyForDischarge},
		{f.svc.DischargePatient, model.StatusDischarged},
	}
	for _, step := range steps {
		res, err := step.run(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, res.Confirmed())
		assert.Equal(t, step.want, res.Booking.Status)
		assert.Equal(t, step.want, f.status(t, b.ID))
	}

	events, err := f.repos.Outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, len(steps))
}

func TestService_CancelFromEveryNonTerminalStatus(t *testing.T) {
	ctx := context.Background()
	for _, from := range model.AllStatuses() {
		if from.Terminal() {
			continue
		}
		t.Run(string(from), func(t *testing.T) {
			f := newFixture(t)
			b := f.add(t, "09:00", from, model.BookingTypeOnline)

			res, err := f.svc.CancelAppointment(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, model.StatusCancelled, res.Booking.Status)
			assert.Equal(t, model.StatusCancelled, f.status(t, b.ID))
		})
	}
}

func TestService_CancelTwiceIsNoOpWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.add(t, "09:00", model.StatusConfirmed, model.BookingTypeOnline)

	_, err := f.svc.CancelAppointment(ctx, b.ID)
	require.NoError(t, err)
	res, err := f.svc.CancelAppointment(ctx, b.ID)
	require.NoError(t, err)

	assert.True(t, res.Confirmed())
	assert.Equal(t, model.StatusCancelled, res.Booking.Status)
	assert.Equal(t, 2, f.bookings.updates)
}

func TestService_CancelDischargedIsRejected(t *testing.T) {
	f := newFixture(t)
	b := f.add(t, "09:00", model.StatusDischarged, model.BookingTypeOnline)

	_, err := f.svc.CancelAppointment(context.Background(), b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 0, f.bookings.updates)
}

func TestService_MoveToIntakeAllowedSources(t *testing.T) {
	ctx := context.Background()
	for _, from := range model.AllStatuses() {
		t.Run(string(from), func(t *testing.T) {
			f := newFixture(t)
			b := f.add(t, "09:00", from, model.BookingTypeOnline)

			_, err := f.svc.MoveToIntake(ctx, b.ID)
			switch from {
			case model.StatusPending, model.StatusConfirmed, model.StatusIntake:
				require.NoError(t, err)
				assert.Equal(t, model.StatusIntake, f.status(t, b.ID))
				assert.Equal(t, 1, f.bookings.updates)
			default:
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))
				assert.Equal(t, from, f.status(t, b.ID))
				assert.Equal(t, 0, f.bookings.updates)
			}
		})
	}
}

func TestService_TransitionUnknownBooking(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.StartCall(context.Background(), uuid.New())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 0, f.bookings.updates)

	_, err = f.svc.Transition(context.Background(), uuid.New(), Action("teleport"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestService_FailedWriteRollsBackView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.add(t, "09:00", model.StatusConfirmed, model.BookingTypeOnline)

	view := datastore.New(f.repos.Bookings, f.repos.Patients, datastore.Options{RefreshInterval: time.Hour})
	require.NoError(t, view.Init(ctx, nil))
	defer view.Teardown()

	svc := NewService(f.bookings, Options{View: view, Notifier: f.notes})
	before, ok := view.Snapshot().Booking(b.ID)
	require.True(t, ok)
	prior := *before

	f.bookings.failUpdate = errStoreDown
	res, err := svc.MoveToIntake(ctx, b.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, datastore.RolledBack, res.Outcome)

	after, ok := view.Snapshot().Booking(b.ID)
	require.True(t, ok)
	assert.Equal(t, prior, *after)
	assert.Equal(t, model.StatusConfirmed, f.status(t, b.ID))

	notes := f.notes.List()
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationError, notes[0].Type)
	assert.Equal(t, "Failed to move patient to intake", notes[0].Message)
	assert.Equal(t, "Jane Doe", notes[0].PatientName)
}

func TestService_ConfirmedWriteUpdatesView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.add(t, "09:00", model.StatusConfirmed, model.BookingTypeOnline)

	view := datastore.New(f.repos.Bookings, f.repos.Patients, datastore.Options{RefreshInterval: time.Hour})
	require.NoError(t, view.Init(ctx, nil))
	defer view.Teardown()

	svc := NewService(f.bookings, Options{View: view})
	res, err := svc.MoveToIntake(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Previous.Status)

	got, ok := view.Snapshot().Booking(b.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusIntake, got.Status)
}

func TestService_ForceSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.add(t, "09:00", model.StatusDischarged, model.BookingTypeOnline)

	res, err := f.svc.ForceSetStatus(ctx, b.ID, model.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, res.Booking.Status)

	_, err = f.svc.ForceSetStatus(ctx, b.ID, model.Status("unknown"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
	assert.Equal(t, 1, f.bookings.updates)
}

func TestService_AutoAdvancePicksEarliestConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	nine := f.add(t, "09:00", model.StatusConfirmed, model.BookingTypeOnline)
	eight := f.add(t, "08:00", model.StatusConfirmed, model.BookingTypeOnline)
	f.add(t, "07:00", model.StatusConfirmed, model.BookingTypePreBooked)

	advanced, err := f.svc.AutoAdvanceQueue(ctx)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, model.StatusIntake, f.status(t, eight.ID))
	assert.Equal(t, model.StatusConfirmed, f.status(t, nine.ID))

	advanced, err = f.svc.AutoAdvanceQueue(ctx)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, 1, f.bookings.updates)
}

func TestService_AutoAdvanceNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	advanced, err := f.svc.AutoAdvanceQueue(ctx)
	require.NoError(t, err)
	assert.False(t, advanced)

	f.add(t, "08:00", model.StatusIntake, model.BookingTypeOnline)
	f.add(t, "09:00", model.StatusConfirmed, model.BookingTypeOnline)
	advanced, err = f.svc.AutoAdvanceQueue(ctx)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, 0, f.bookings.updates)
}

func TestService_NextPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	next, err := f.svc.NextPatient(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)

	f.add(t, "10:00", model.StatusReadyForProvider, model.BookingTypeOnline)
	first := f.add(t, "09:30", model.StatusReadyForProvider, model.BookingTypeOnline)
	f.add(t, "09:30", model.StatusReadyForProvider, model.BookingTypeOnline)
	f.add(t, "08:00", model.StatusReadyForProvider, model.BookingTypePreBooked)
	f.add(t, "07:00", model.StatusIntake, model.BookingTypeOnline)

	next, err = f.svc.NextPatient(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, first.ID, next.ID)
}

func TestService_EstimatedWaitTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inCall := f.add(t, "08:00", model.StatusProvider, model.BookingTypeOnline)
	f.add(t, "08:15", model.StatusReadyForProvider, model.BookingTypeOnline)
	f.add(t, "08:30", model.StatusReadyForProvider, model.BookingTypeOnline)
	f.add(t, "08:45", model.StatusIntake, model.BookingTypeOnline)
	f.add(t, "08:50", model.StatusIntake, model.BookingTypePreBooked)
	waiting := f.add(t, "09:00", model.StatusConfirmed, model.BookingTypeOnline)

	minutes, err := f.svc.EstimatedWaitTime(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, 15+2*10+5, minutes)

	minutes, err = f.svc.EstimatedWaitTime(ctx, inCall.ID)
	require.NoError(t, err)
	assert.Zero(t, minutes)

	minutes, err = f.svc.EstimatedWaitTime(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, minutes)
}

func TestService_EstimatedWaitTime_PreBookedTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, "08:00", model.StatusProvider, model.BookingTypeOnline)
	f.add(t, "08:15", model.StatusReadyForProvider, model.BookingTypeOnline)
	inPerson := f.add(t, "09:00", model.StatusConfirmed, model.BookingTypePreBooked)
	inPersonCall := f.add(t, "09:15", model.StatusProvider, model.BookingTypePreBooked)

	minutes, err := f.svc.EstimatedWaitTime(ctx, inPerson.ID)
	require.NoError(t, err)
	assert.Equal(t, 15+10, minutes)

	minutes, err = f.svc.EstimatedWaitTime(ctx, inPersonCall.ID)
	require.NoError(t, err)
	assert.Zero(t, minutes)
}

func TestService_StatsAndGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, "08:00", model.StatusConfirmed, model.BookingTypeOnline)
	f.add(t, "08:30", model.StatusIntake, model.BookingTypeOnline)
	f.add(t, "09:00", model.StatusProvider, model.BookingTypeOnline)
	f.add(t, "09:30", model.StatusCancelled, model.BookingTypeOnline)
	f.add(t, "10:00", model.StatusConfirmed, model.BookingTypePreBooked)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Confirmed)
	assert.Equal(t, 1, stats.Intake)
	assert.Equal(t, 1, stats.Provider)
	assert.Equal(t, 1, stats.Cancelled)

	groups, err := f.svc.QueueByStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, groups.Confirmed, 1)
	assert.Len(t, groups.Intake, 1)
	assert.Empty(t, groups.ReadyForProvider)
	assert.Len(t, groups.Provider, 1)
}
