package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) bookings(args mock.Arguments) ([]*model.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) booking(args mock.Arguments) (*model.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) List(ctx context.Context) ([]*model.Booking, error) {
	return m.bookings(m.Called(ctx))
}

func (m *MockBookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id))
}

func (m *MockBookingRepository) Create(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	return m.booking(m.Called(ctx, b))
}

func (m *MockBookingRepository) Update(ctx context.Context, id uuid.UUID, update model.BookingUpdate) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, update))
}

func (m *MockBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBookingRepository) ListByStatus(ctx context.Context, status model.Status) ([]*model.Booking, error) {
	return m.bookings(m.Called(ctx, status))
}

func (m *MockBookingRepository) ListByType(ctx context.Context, bookingType model.BookingType) ([]*model.Booking, error) {
	return m.bookings(m.Called(ctx, bookingType))
}

func (m *MockBookingRepository) ListByCreator(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	return m.bookings(m.Called(ctx, userID))
}

type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) patient(args mock.Arguments) (*model.Patient, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *MockPatientRepository) patients(args mock.Arguments) ([]*model.Patient, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Patient), args.Error(1)
}

func (m *MockPatientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	return m.patients(m.Called(ctx))
}

func (m *MockPatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return m.patient(m.Called(ctx, id))
}

func (m *MockPatientRepository) Create(ctx context.Context, p *model.Patient) (*model.Patient, error) {
	return m.patient(m.Called(ctx, p))
}

func (m *MockPatientRepository) Update(ctx context.Context, id uuid.UUID, update model.PatientUpdate) (*model.Patient, error) {
	return m.patient(m.Called(ctx, id, update))
}

func (m *MockPatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPatientRepository) Search(ctx context.Context, query string) ([]*model.Patient, error) {
	return m.patients(m.Called(ctx, query))
}

func (m *MockPatientRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Patient, error) {
	return m.patients(m.Called(ctx, userID))
}
