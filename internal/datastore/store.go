// Package datastore keeps the dashboard's in-memory view of bookings and
// patients. Every mutation builds a new Snapshot and swaps it in; readers never
// see a snapshot change under them.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/queueview"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

var (
	ErrAlreadyRunning = errors.New("datastore already initialised")
	ErrNotRunning     = errors.New("datastore not initialised")
)

const DefaultRefreshInterval = 30 * time.Second

// Snapshot is an immutable view of the store contents.
type Snapshot struct {
	Bookings []*model.Booking  `json:"bookings"`
	Patients []*model.Patient  `json:"patients"`
	Stats    model.BookingStats `json:"stats"`
	LoadedAt time.Time          `json:"loaded_at"`
}

// Booking returns the booking with id, if present.
func (s Snapshot) Booking(id uuid.UUID) (*model.Booking, bool) {
	if i := bookingIndex(s.Bookings, id); i >= 0 {
		return s.Bookings[i], true
	}
	return nil, false
}

type Options struct {
	RefreshInterval time.Duration
	Logger          *logger.Logger
	Metrics         *metrics.Metrics
	Now             func() time.Time
}

type Store struct {
	bookings repository.BookingRepository
	patients repository.PatientRepository
	interval time.Duration
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// mu guards snap and the lifecycle fields below. generation changes on
	// every Init, Teardown and local write; a refresh that began under an older
	// generation is dropped.
	mu         sync.RWMutex
	snap       *Snapshot
	onUpdate   func(Snapshot)
	running    bool
	visible    bool
	generation uint64
	cancel     context.CancelFunc
	wake       chan struct{}
	wg         sync.WaitGroup
}

func New(bookings repository.BookingRepository, patients repository.PatientRepository, opts Options) *Store {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		bookings: bookings,
		patients: patients,
		interval: opts.RefreshInterval,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
		snap:     &Snapshot{Bookings: []*model.Booking{}, Patients: []*model.Patient{}, Stats: model.NewBookingStats()},
		visible:  true,
	}
}

// Init loads the first snapshot and starts the refresh loop. onUpdate, if
// set, is called after every snapshot change. The loop keeps running when the
// first load fails; that error is returned so the caller can report it.
func (s *Store) Init(ctx context.Context, onUpdate func(Snapshot)) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.onUpdate = onUpdate
	s.generation++
	s.cancel = cancel
	s.wake = make(chan struct{}, 1)
	s.mu.Unlock()

	err := s.Refresh(loopCtx)

	s.wg.Add(1)
	go s.loop(loopCtx)

	if err != nil {
		return fmt.Errorf("failed to load initial snapshot: %w", err)
	}
	return nil
}

// Teardown stops the refresh loop. Refreshes still in flight are discarded.
func (s *Store) Teardown() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.generation++
	s.onUpdate = nil
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// SetVisible pauses periodic refresh while the view is hidden. Becoming
// visible triggers an immediate refresh.
func (s *Store) SetVisible(visible bool) {
	s.mu.Lock()
	wasVisible := s.visible
	s.visible = visible
	wake := s.wake
	s.mu.Unlock()

	if visible && !wasVisible && wake != nil {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

func (s *Store) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

func (s *Store) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.mu.RLock()
	wake := s.wake
	s.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.Visible() {
				continue
			}
		case <-wake:
		}
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.log.Error(err, "Failed to refresh datastore")
		}
	}
}

// Refresh reloads bookings and patients from the store. A result that arrives
// after Teardown, after a newer Init, or after a local write that overlapped
// the read is dropped.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	gen, running := s.generation, s.running
	s.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}

	bookings, err := s.bookings.List(ctx)
	if err != nil {
		s.countRefresh("error")
		return fmt.Errorf("failed to fetch bookings: %w", err)
	}
	patients, err := s.patients.List(ctx)
	if err != nil {
		s.countRefresh("error")
		return fmt.Errorf("failed to fetch patients: %w", err)
	}

	s.mu.Lock()
	if gen != s.generation || !s.running {
		s.mu.Unlock()
		s.countRefresh("discarded")
		return nil
	}
	s.snap = s.build(bookings, patients)
	snap, notify := *s.snap, s.onUpdate
	s.mu.Unlock()

	s.countRefresh("success")
	if notify != nil {
		notify(snap)
	}
	return nil
}

func (s *Store) countRefresh(status string) {
	if s.metrics != nil {
		s.metrics.DatastoreRefreshes.WithLabelValues(status).Inc()
	}
}

// Snapshot returns the current view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.snap
}

func (s *Store) build(bookings []*model.Booking, patients []*model.Patient) *Snapshot {
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	if patients == nil {
		patients = []*model.Patient{}
	}
	return &Snapshot{
		Bookings: bookings,
		Patients: patients,
		Stats:    queueview.ComputeStats(bookings),
		LoadedAt: s.now(),
	}
}

// swap replaces the snapshot using fn, which receives copies of the current
// slices and may modify them freely.
func (s *Store) swap(fn func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient)) {
	s.mu.Lock()
	bookings := append([]*model.Booking(nil), s.snap.Bookings...)
	patients := append([]*model.Patient(nil), s.snap.Patients...)
	bookings, patients = fn(bookings, patients)
	s.snap = s.build(bookings, patients)
	s.generation++
	snap, notify := *s.snap, s.onUpdate
	s.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}
