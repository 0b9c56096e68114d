package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/telehealth-api/internal/repository"
)

type bookingRepository struct {
	BaseRepository
}

type patientRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

func NewBookingRepository(db *sqlx.DB) repository.BookingRepository {
	return &bookingRepository{NewBaseRepository(db)}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}

// NewRepositories wires every postgres repository onto one connection pool.
func NewRepositories(db *sqlx.DB) repository.Repositories {
	return repository.Repositories{
		Bookings: NewBookingRepository(db),
		Patients: NewPatientRepository(db),
		Outbox:   NewOutboxRepository(db),
	}
}
