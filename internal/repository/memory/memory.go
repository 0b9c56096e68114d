// Package memory holds map-backed repositories used by tests and by the
// memory storage driver.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
)

// Store holds every table behind one lock so joined reads are consistent.
type Store struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*model.Booking
	order    []uuid.UUID
	patients map[uuid.UUID]*model.Patient
	outbox   map[uuid.UUID]*model.OutboxEvent
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		bookings: make(map[uuid.UUID]*model.Booking),
		patients: make(map[uuid.UUID]*model.Patient),
		outbox:   make(map[uuid.UUID]*model.OutboxEvent),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Repositories exposes the store through the repository contracts.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Bookings: &BookingRepository{s},
		Patients: &PatientRepository{s},
		Outbox:   &OutboxRepository{s},
	}
}

// joined returns a copy of b with its patient attached. Callers hold mu.
func (s *Store) joined(b *model.Booking) *model.Booking {
	out := *b
	out.Patient = nil
	if p, ok := s.patients[b.PatientID]; ok {
		cp := *p
		out.Patient = &cp
	}
	return &out
}

func (s *Store) selectBookings(match func(*model.Booking) bool) []*model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Booking, 0, len(s.order))
	for _, id := range s.order {
		b := s.bookings[id]
		if match == nil || match(b) {
			out = append(out, s.joined(b))
		}
	}
	model.SortBySchedule(out)
	return out
}

type BookingRepository struct {
	s *Store
}

func NewBookingRepository(s *Store) *BookingRepository {
	return &BookingRepository{s}
}

func (r *BookingRepository) List(ctx context.Context) ([]*model.Booking, error) {
	return r.s.selectBookings(nil), nil
}

func (r *BookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.joined(b), nil
}

func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b := *booking
	b.Patient = nil
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Touch(r.s.now())
	if _, exists := r.s.bookings[b.ID]; !exists {
		r.s.order = append(r.s.order, b.ID)
	}
	r.s.bookings[b.ID] = &b
	return r.s.joined(&b), nil
}

func (r *BookingRepository) Update(ctx context.Context, id uuid.UUID, update model.BookingUpdate) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	patched := update.Apply(*current)
	patched.UpdatedAt = r.s.now()
	r.s.bookings[id] = &patched
	return r.s.joined(&patched), nil
}

func (r *BookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.bookings, id)
	for i, oid := range r.s.order {
		if oid == id {
			r.s.order = append(r.s.order[:i], r.s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *BookingRepository) ListByStatus(ctx context.Context, status model.Status) ([]*model.Booking, error) {
	return r.s.selectBookings(func(b *model.Booking) bool { return b.Status == status }), nil
}

func (r *BookingRepository) ListByType(ctx context.Context, bookingType model.BookingType) ([]*model.Booking, error) {
	return r.s.selectBookings(func(b *model.Booking) bool { return b.BookingType == bookingType }), nil
}

func (r *BookingRepository) ListByCreator(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	return r.s.selectBookings(func(b *model.Booking) bool { return b.CreatedBy == userID }), nil
}

type PatientRepository struct {
	s *Store
}

func NewPatientRepository(s *Store) *PatientRepository {
	return &PatientRepository{s}
}

func (r *PatientRepository) selectPatients(match func(*model.Patient) bool) []*model.Patient {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.Patient, 0, len(r.s.patients))
	for _, p := range r.s.patients {
		if match == nil || match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FullName == out[j].FullName {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].FullName < out[j].FullName
	})
	return out
}

func (r *PatientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	return r.selectPatients(nil), nil
}

func (r *PatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PatientRepository) Create(ctx context.Context, patient *model.Patient) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p := *patient
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Touch(r.s.now())
	r.s.patients[p.ID] = &p
	cp := p
	return &cp, nil
}

func (r *PatientRepository) Update(ctx context.Context, id uuid.UUID, update model.PatientUpdate) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	patched := update.Apply(*current)
	patched.UpdatedAt = r.s.now()
	r.s.patients[id] = &patched
	cp := patched
	return &cp, nil
}

func (r *PatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.patients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.patients, id)
	return nil
}

func (r *PatientRepository) Search(ctx context.Context, query string) ([]*model.Patient, error) {
	q := strings.ToLower(query)
	return r.selectPatients(func(p *model.Patient) bool {
		return strings.Contains(strings.ToLower(p.FullName), q) ||
			strings.Contains(strings.ToLower(p.Email), q)
	}), nil
}

func (r *PatientRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Patient, error) {
	return r.selectPatients(func(p *model.Patient) bool {
		return p.UserID != nil && *p.UserID == userID
	}), nil
}

type OutboxRepository struct {
	s *Store
}

func NewOutboxRepository(s *Store) *OutboxRepository {
	return &OutboxRepository{s}
}

func (r *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = now
	event.UpdatedAt = now
	cp := *event
	r.s.outbox[cp.ID] = &cp
	return nil
}

func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := r.s.now()
	var out []*model.OutboxEvent
	for _, e := range r.s.outbox {
		due := e.Status == model.OutboxStatusPending ||
			(e.Status == model.OutboxStatusFailed && e.RetryAt != nil && !e.RetryAt.After(now))
		if due {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.s.now()
	e.Status = status
	e.ErrorMessage = errMsg
	e.RetryAt = retryAt
	e.UpdatedAt = now
	switch status {
	case model.OutboxStatusFailed:
		e.RetryCount++
	case model.OutboxStatusProcessed:
		e.ProcessedAt = &now
	}
	return nil
}

func (r *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.s.outbox, id)
			n++
		}
	}
	return n, nil
}
