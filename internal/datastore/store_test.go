package datastore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/repository/memory"
)

var errStoreDown = errors.New("store unavailable")

// gatedBookings blocks List after reading while armed, so tests can
// interleave a refresh with Teardown or a local write.
type gatedBookings struct {
	repository.BookingRepository
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBookings) List(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := g.BookingRepository.List(ctx)
	if g.armed.Load() {
		g.entered <- struct{}{}
		<-g.release
	}
	return bookings, err
}

func seed(t *testing.T) (repository.Repositories, *model.Patient, []*model.Booking) {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewStore().Repositories()

	jane, err := repos.Patients.Create(ctx, &model.Patient{FullName: "Jane Doe", Email: "jane@example.com"})
	require.NoError(t, err)

	var bookings []*model.Booking
	for _, tm := range []string{"08:00", "09:00", "10:00"} {
		b, err := repos.Bookings.Create(ctx, &model.Booking{
			PatientID:       jane.ID,
			AppointmentDate: "2024-01-15",
			AppointmentTime: tm,
			BookingType:     model.BookingTypeOnline,
			Status:          model.StatusConfirmed,
		})
		require.NoError(t, err)
		bookings = append(bookings, b)
	}
	return repos, jane, bookings
}

func newStore(t *testing.T, repos repository.Repositories) *Store {
	t.Helper()
	s := New(repos.Bookings, repos.Patients, Options{RefreshInterval: time.Hour})
	require.NoError(t, s.Init(context.Background(), nil))
	t.Cleanup(s.Teardown)
	return s
}

func TestStore_InitLoadsSnapshot(t *testing.T) {
	repos, _, bookings := seed(t)

	var updates atomic.Int32
	s := New(repos.Bookings, repos.Patients, Options{RefreshInterval: time.Hour})
	require.NoError(t, s.Init(context.Background(), func(Snapshot) { updates.Add(1) }))
	defer s.Teardown()

	snap := s.Snapshot()
	require.Len(t, snap.Bookings, 3)
	assert.Equal(t, bookings[0].ID, snap.Bookings[0].ID)
	assert.Len(t, snap.Patients, 1)
	assert.Equal(t, 3, snap.Stats.Total)
	assert.Equal(t, 3, snap.Stats.ByStatus[model.StatusConfirmed])
	assert.Equal(t, int32(1), updates.Load())

	assert.ErrorIs(t, s.Init(context.Background(), nil), ErrAlreadyRunning)
}

func TestStore_ApplyBookingRollbackRestoresPrior(t *testing.T) {
	repos, _, bookings := seed(t)
	s := newStore(t, repos)
	id := bookings[1].ID

	before, ok := s.Snapshot().Booking(id)
	require.True(t, ok)
	priorCopy := *before

	res := s.ApplyBooking(context.Background(), id, model.StatusUpdate(model.StatusIntake), func(ctx context.Context) (*model.Booking, error) {
		during, ok := s.Snapshot().Booking(id)
		require.True(t, ok)
		assert.Equal(t, model.StatusIntake, during.Status)
		return nil, errStoreDown
	})

	assert.Equal(t, RolledBack, res.Outcome)
	assert.False(t, res.Confirmed())
	assert.ErrorIs(t, res.Err, errStoreDown)
	assert.Same(t, before, res.Previous)

	after, ok := s.Snapshot().Booking(id)
	require.True(t, ok)
	assert.Same(t, before, after)
	assert.Equal(t, priorCopy, *after)
	assert.Equal(t, id, s.Snapshot().Bookings[1].ID)
}

func TestStore_ApplyBookingConfirmResorts(t *testing.T) {
	repos, _, bookings := seed(t)
	s := newStore(t, repos)
	id := bookings[2].ID
	early := "07:30"
	patch := model.BookingUpdate{AppointmentTime: &early}

	res := s.ApplyBooking(context.Background(), id, patch, func(ctx context.Context) (*model.Booking, error) {
		return repos.Bookings.Update(ctx, id, patch)
	})

	require.True(t, res.Confirmed())
	assert.Equal(t, "07:30", res.Booking.AppointmentTime)
	assert.Equal(t, "10:00", res.Previous.AppointmentTime)

	snap := s.Snapshot()
	assert.Equal(t, id, snap.Bookings[0].ID)
	assert.Same(t, res.Booking, snap.Bookings[0])
}

func TestStore_ApplyBookingStatsFollowView(t *testing.T) {
	repos, _, bookings := seed(t)
	s := newStore(t, repos)
	id := bookings[0].ID

	res := s.UpdateBookingOptimistic(context.Background(), id, model.StatusUpdate(model.StatusCancelled), func(ctx context.Context) (*model.Booking, error) {
		return repos.Bookings.Update(ctx, id, model.StatusUpdate(model.StatusCancelled))
	})
	require.True(t, res.Confirmed())

	stats := s.Snapshot().Stats
	assert.Equal(t, 2, stats.ByStatus[model.StatusConfirmed])
	assert.Equal(t, 1, stats.ByStatus[model.StatusCancelled])
}

func TestStore_AddBookingOptimistic(t *testing.T) {
	repos, jane, _ := seed(t)
	s := newStore(t, repos)
	ctx := context.Background()

	failed := s.AddBookingOptimistic(ctx, &model.Booking{PatientID: jane.ID, AppointmentDate: "2024-01-15", AppointmentTime: "07:00"}, func(context.Context) (*model.Booking, error) {
		assert.Len(t, s.Snapshot().Bookings, 4)
		return nil, errStoreDown
	})
	assert.Equal(t, RolledBack, failed.Outcome)
	assert.Len(t, s.Snapshot().Bookings, 3)

	tentative := &model.Booking{PatientID: jane.ID, AppointmentDate: "2024-01-15", AppointmentTime: "07:00"}
	added := s.AddBookingOptimistic(ctx, tentative, func(ctx context.Context) (*model.Booking, error) {
		return repos.Bookings.Create(ctx, &model.Booking{PatientID: jane.ID, AppointmentDate: "2024-01-15", AppointmentTime: "07:00"})
	})
	require.True(t, added.Confirmed())

	snap := s.Snapshot()
	require.Len(t, snap.Bookings, 4)
	assert.Equal(t, added.Booking.ID, snap.Bookings[0].ID)
	_, stillThere := snap.Booking(tentative.ID)
	assert.False(t, stillThere)
}

func TestStore_DeleteBookingRollbackKeepsPosition(t *testing.T) {
	repos, _, bookings := seed(t)
	s := newStore(t, repos)
	id := bookings[1].ID
	before := s.Snapshot().Bookings[1]

	res := s.DeleteBookingOptimistic(context.Background(), id, func(context.Context) error {
		_, ok := s.Snapshot().Booking(id)
		assert.False(t, ok)
		return errStoreDown
	})

	assert.Equal(t, RolledBack, res.Outcome)
	snap := s.Snapshot()
	require.Len(t, snap.Bookings, 3)
	assert.Same(t, before, snap.Bookings[1])

	res = s.DeleteBookingOptimistic(context.Background(), id, func(ctx context.Context) error {
		return repos.Bookings.Delete(ctx, id)
	})
	assert.True(t, res.Confirmed())
	assert.Len(t, s.Snapshot().Bookings, 2)
}

func TestStore_ApplyPatientUpdatesEmbeddedBookings(t *testing.T) {
	repos, jane, bookings := seed(t)
	s := newStore(t, repos)
	name := "Jane Smith"
	patch := model.PatientUpdate{FullName: &name}
	original := s.Snapshot().Bookings[0]

	res := s.ApplyPatient(context.Background(), jane.ID, patch, func(context.Context) (*model.Patient, error) {
		b, _ := s.Snapshot().Booking(bookings[0].ID)
		assert.Equal(t, "Jane Smith", b.Patient.FullName)
		return nil, errStoreDown
	})
	assert.Equal(t, RolledBack, res.Outcome)
	assert.Same(t, original, s.Snapshot().Bookings[0])
	assert.Equal(t, "Jane Doe", s.Snapshot().Patients[0].FullName)

	res = s.UpdatePatientOptimistic(context.Background(), jane.ID, patch, func(ctx context.Context) (*model.Patient, error) {
		return repos.Patients.Update(ctx, jane.ID, patch)
	})
	require.True(t, res.Confirmed())
	for _, b := range s.Snapshot().Bookings {
		assert.Equal(t, "Jane Smith", b.Patient.FullName)
	}
}

func TestStore_PatientAddAndDelete(t *testing.T) {
	repos, _, _ := seed(t)
	s := newStore(t, repos)
	ctx := context.Background()

	res := s.AddPatientOptimistic(ctx, &model.Patient{FullName: "Bob", Email: "bob@example.com"}, func(ctx context.Context) (*model.Patient, error) {
		return repos.Patients.Create(ctx, &model.Patient{FullName: "Bob", Email: "bob@example.com"})
	})
	require.True(t, res.Confirmed())
	require.Len(t, s.Snapshot().Patients, 2)

	del := s.DeletePatientOptimistic(ctx, res.Patient.ID, func(context.Context) error { return errStoreDown })
	assert.Equal(t, RolledBack, del.Outcome)
	assert.Len(t, s.Snapshot().Patients, 2)
}

func TestStore_RefreshAfterTeardownIsDiscarded(t *testing.T) {
	repos, _, _ := seed(t)
	gated := &gatedBookings{
		BookingRepository: repos.Bookings,
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	s := New(gated, repos.Patients, Options{RefreshInterval: time.Hour})
	require.NoError(t, s.Init(context.Background(), nil))
	loaded := s.Snapshot()

	_, err := repos.Bookings.Create(context.Background(), &model.Booking{AppointmentDate: "2024-01-16", AppointmentTime: "08:00"})
	require.NoError(t, err)

	gated.armed.Store(true)
	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-gated.entered

	s.Teardown()
	close(gated.release)

	require.NoError(t, <-done)
	assert.Len(t, s.Snapshot().Bookings, 3)
	assert.Equal(t, loaded.LoadedAt, s.Snapshot().LoadedAt)
	assert.ErrorIs(t, s.Refresh(context.Background()), ErrNotRunning)
}

func TestStore_RefreshOverlappingWriteIsDiscarded(t *testing.T) {
	repos, _, bookings := seed(t)
	gated := &gatedBookings{
		BookingRepository: repos.Bookings,
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	s := New(gated, repos.Patients, Options{RefreshInterval: time.Hour})
	require.NoError(t, s.Init(context.Background(), nil))
	defer s.Teardown()

	target := bookings[0].ID
	gated.armed.Store(true)
	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-gated.entered

	res := s.ApplyBooking(context.Background(), target, model.StatusUpdate(model.StatusIntake),
		func(ctx context.Context) (*model.Booking, error) {
			return repos.Bookings.Update(ctx, target, model.StatusUpdate(model.StatusIntake))
		})
	require.True(t, res.Confirmed())

	close(gated.release)
	require.NoError(t, <-done)

	b, ok := s.Snapshot().Booking(target)
	require.True(t, ok)
	assert.Equal(t, model.StatusIntake, b.Status)

	gated.armed.Store(false)
	require.NoError(t, s.Refresh(context.Background()))
	b, ok = s.Snapshot().Booking(target)
	require.True(t, ok)
	assert.Equal(t, model.StatusIntake, b.Status)
}

func TestStore_BecomingVisibleRefreshes(t *testing.T) {
	repos, _, _ := seed(t)
	s := newStore(t, repos)
	assert.True(t, s.Visible())

	s.SetVisible(false)
	assert.False(t, s.Visible())

	_, err := repos.Bookings.Create(context.Background(), &model.Booking{AppointmentDate: "2024-01-16", AppointmentTime: "08:00"})
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Bookings, 3)

	s.SetVisible(true)
	assert.Eventually(t, func() bool {
		return len(s.Snapshot().Bookings) == 4
	}, time.Second, 10*time.Millisecond)
}

func TestStore_InitReportsLoadFailure(t *testing.T) {
	repos, _, _ := seed(t)
	s := New(failingBookings{repos.Bookings}, repos.Patients, Options{RefreshInterval: time.Hour})
	err := s.Init(context.Background(), nil)
	defer s.Teardown()

	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, s.Snapshot().Bookings)
	assert.ErrorIs(t, s.Init(context.Background(), nil), ErrAlreadyRunning)
}

type failingBookings struct {
	repository.BookingRepository
}

func (failingBookings) List(context.Context) ([]*model.Booking, error) {
	return nil, errStoreDown
}
