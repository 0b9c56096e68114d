package datastore

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

// Outcome says whether an optimistic change was kept or undone.
type Outcome string

const (
	Confirmed  Outcome = "confirmed"
	RolledBack Outcome = "rolled_back"
)

// Result reports an optimistic booking change. Booking is the confirmed
// record on success. Previous is what the view held before the change, and
// is what the view holds again after a rollback.
type Result struct {
	Outcome  Outcome        `json:"outcome"`
	Booking  *model.Booking `json:"booking"`
	Previous *model.Booking `json:"previous,omitempty"`
	Err      error          `json:"-"`
}

func (r Result) Confirmed() bool {
	return r.Outcome == Confirmed
}

type PatientResult struct {
	Outcome  Outcome        `json:"outcome"`
	Patient  *model.Patient `json:"patient"`
	Previous *model.Patient `json:"previous,omitempty"`
	Err      error          `json:"-"`
}

func (r PatientResult) Confirmed() bool {
	return r.Outcome == Confirmed
}

func bookingIndex(bookings []*model.Booking, id uuid.UUID) int {
	for i, b := range bookings {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func patientIndex(patients []*model.Patient, id uuid.UUID) int {
	for i, p := range patients {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// replaceBooking puts b in place of the entry with b's ID, or appends it.
func replaceBooking(bookings []*model.Booking, b *model.Booking) []*model.Booking {
	if i := bookingIndex(bookings, b.ID); i >= 0 {
		bookings[i] = b
		return bookings
	}
	return append(bookings, b)
}

func insertBookingAt(bookings []*model.Booking, i int, b *model.Booking) []*model.Booking {
	if i < 0 || i > len(bookings) {
		i = len(bookings)
	}
	bookings = append(bookings, nil)
	copy(bookings[i+1:], bookings[i:])
	bookings[i] = b
	return bookings
}

func insertPatientAt(patients []*model.Patient, i int, p *model.Patient) []*model.Patient {
	if i < 0 || i > len(patients) {
		i = len(patients)
	}
	patients = append(patients, nil)
	copy(patients[i+1:], patients[i:])
	patients[i] = p
	return patients
}

// ApplyBooking shows patch in the view immediately, then calls persist. When
// persist fails the view is restored to the exact prior object.
func (s *Store) ApplyBooking(ctx context.Context, id uuid.UUID, patch model.BookingUpdate, persist func(context.Context) (*model.Booking, error)) Result {
	var prev, tentative *model.Booking
	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		if i := bookingIndex(bookings, id); i >= 0 {
			prev = bookings[i]
			patched := patch.Apply(*prev)
			tentative = &patched
			bookings[i] = tentative
		}
		return bookings, patients
	})

	confirmed, err := persist(ctx)
	if err != nil {
		if prev != nil {
			s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
				if i := bookingIndex(bookings, id); i >= 0 {
					bookings[i] = prev
				}
				return bookings, patients
			})
		}
		return Result{Outcome: RolledBack, Previous: prev, Err: err}
	}

	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		bookings = replaceBooking(bookings, confirmed)
		model.SortBySchedule(bookings)
		return bookings, patients
	})
	return Result{Outcome: Confirmed, Booking: confirmed, Previous: prev}
}

// UpdateBookingOptimistic is ApplyBooking under its dashboard name.
func (s *Store) UpdateBookingOptimistic(ctx context.Context, id uuid.UUID, patch model.BookingUpdate, persist func(context.Context) (*model.Booking, error)) Result {
	return s.ApplyBooking(ctx, id, patch, persist)
}

// AddBookingOptimistic shows tentative until persist returns the stored
// record. tentative must carry an ID so it can be replaced or withdrawn.
func (s *Store) AddBookingOptimistic(ctx context.Context, tentative *model.Booking, persist func(context.Context) (*model.Booking, error)) Result {
	if tentative.ID == uuid.Nil {
		tentative.ID = uuid.New()
	}
	tempID := tentative.ID

	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		bookings = append(bookings, tentative)
		model.SortBySchedule(bookings)
		return bookings, patients
	})

	created, err := persist(ctx)
	if err != nil {
		s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
			if i := bookingIndex(bookings, tempID); i >= 0 {
				bookings = append(bookings[:i], bookings[i+1:]...)
			}
			return bookings, patients
		})
		return Result{Outcome: RolledBack, Err: err}
	}

	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		if i := bookingIndex(bookings, tempID); i >= 0 {
			bookings = append(bookings[:i], bookings[i+1:]...)
		}
		bookings = replaceBooking(bookings, created)
		model.SortBySchedule(bookings)
		return bookings, patients
	})
	return Result{Outcome: Confirmed, Booking: created}
}

// DeleteBookingOptimistic hides the booking, restoring it in place if persist fails.
func (s *Store) DeleteBookingOptimistic(ctx context.Context, id uuid.UUID, persist func(context.Context) error) Result {
	var prev *model.Booking
	index := -1
	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		if index = bookingIndex(bookings, id); index >= 0 {
			prev = bookings[index]
			bookings = append(bookings[:index], bookings[index+1:]...)
		}
		return bookings, patients
	})

	if err := persist(ctx); err != nil {
		if prev != nil {
			s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
				if bookingIndex(bookings, id) < 0 {
					bookings = insertBookingAt(bookings, index, prev)
				}
				return bookings, patients
			})
		}
		return Result{Outcome: RolledBack, Previous: prev, Err: err}
	}
	return Result{Outcome: Confirmed, Previous: prev}
}

// ApplyPatient is the patient counterpart of ApplyBooking. Bookings that embed
// the patient are updated alongside it.
func (s *Store) ApplyPatient(ctx context.Context, id uuid.UUID, patch model.PatientUpdate, persist func(context.Context) (*model.Patient, error)) PatientResult {
	var prev *model.Patient
	var prevBookings []*model.Booking
	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		if i := patientIndex(patients, id); i >= 0 {
			prev = patients[i]
			patched := patch.Apply(*prev)
			patients[i] = &patched
			prevBookings = append([]*model.Booking(nil), bookings...)
			bookings = withPatient(bookings, &patched)
		}
		return bookings, patients
	})

	confirmed, err := persist(ctx)
	if err != nil {
		if prev != nil {
			s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
				if i := patientIndex(patients, id); i >= 0 {
					patients[i] = prev
				}
				return restorePatientBookings(bookings, prevBookings, id), patients
			})
		}
		return PatientResult{Outcome: RolledBack, Previous: prev, Err: err}
	}

	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		if i := patientIndex(patients, id); i >= 0 {
			patients[i] = confirmed
		} else {
			patients = append(patients, confirmed)
		}
		return withPatient(bookings, confirmed), patients
	})
	return PatientResult{Outcome: Confirmed, Patient: confirmed, Previous: prev}
}

func (s *Store) UpdatePatientOptimistic(ctx context.Context, id uuid.UUID, patch model.PatientUpdate, persist func(context.Context) (*model.Patient, error)) PatientResult {
	return s.ApplyPatient(ctx, id, patch, persist)
}

func (s *Store) AddPatientOptimistic(ctx context.Context, tentative *model.Patient, persist func(context.Context) (*model.Patient, error)) PatientResult {
	if tentative.ID == uuid.Nil {
		tentative.ID = uuid.New()
	}
	tempID := tentative.ID

	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		return bookings, append(patients, tentative)
	})

	created, err := persist(ctx)
	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		if i := patientIndex(patients, tempID); i >= 0 {
			patients = append(patients[:i], patients[i+1:]...)
		}
		if err == nil {
			patients = append(patients, created)
		}
		return bookings, patients
	})
	if err != nil {
		return PatientResult{Outcome: RolledBack, Err: err}
	}
	return PatientResult{Outcome: Confirmed, Patient: created}
}

func (s *Store) DeletePatientOptimistic(ctx context.Context, id uuid.UUID, persist func(context.Context) error) PatientResult {
	var prev *model.Patient
	index := -1
	s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
		if index = patientIndex(patients, id); index >= 0 {
			prev = patients[index]
			patients = append(patients[:index], patients[index+1:]...)
		}
		return bookings, patients
	})

	if err := persist(ctx); err != nil {
		if prev != nil {
			s.swap(func(bookings []*model.Booking, patients []*model.Patient) ([]*model.Booking, []*model.Patient) {
				if patientIndex(patients, id) < 0 {
					patients = insertPatientAt(patients, index, prev)
				}
				return bookings, patients
			})
		}
		return PatientResult{Outcome: RolledBack, Previous: prev, Err: err}
	}
	return PatientResult{Outcome: Confirmed, Previous: prev}
}

// withPatient swaps in copies of the bookings that embed patient p.
func withPatient(bookings []*model.Booking, p *model.Patient) []*model.Booking {
	for i, b := range bookings {
		if b.PatientID == p.ID && b.Patient != nil {
			cp := *b
			cp.Patient = p
			bookings[i] = &cp
		}
	}
	return bookings
}

// restorePatientBookings puts back the prior booking objects for patient id.
func restorePatientBookings(bookings, prior []*model.Booking, id uuid.UUID) []*model.Booking {
	for _, old := range prior {
		if old.PatientID != id {
			continue
		}
		if i := bookingIndex(bookings, old.ID); i >= 0 {
			bookings[i] = old
		}
	}
	return bookings
}
