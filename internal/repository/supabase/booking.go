package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
)

type bookingRepository struct {
	q Querier
}

func bookingInsertRow(b *model.Booking) map[string]interface{} {
	return map[string]interface{}{
		"id":               b.ID,
		"patient_id":       b.PatientID,
		"appointment_date": b.AppointmentDate,
		"appointment_time": b.AppointmentTime,
		"booking_type":     b.BookingType,
		"status":           b.Status,
		"notes":            b.Notes,
		"created_by":       b.CreatedBy,
		"provider_name":    b.ProviderName,
		"chief_complaint":  b.ChiefComplaint,
		"room_location":    b.RoomLocation,
		"is_adhoc":         b.IsAdhoc,
		"created_at":       b.CreatedAt,
		"updated_at":       b.UpdatedAt,
	}
}

func (r *bookingRepository) list(column, value string) ([]*model.Booking, error) {
	query := r.q.From(tableBookings).Select(bookingSelect, "", false)
	if column != "" {
		query = query.Eq(column, value)
	}
	data, _, err := query.
		Order("appointment_date", ascending()).
		Order("appointment_time", ascending()).
		Execute()
	if err != nil {
		return nil, err
	}
	bookings, err := decode[model.Booking](data, "bookings")
	if err != nil {
		return nil, err
	}
	model.SortBySchedule(bookings)
	return bookings, nil
}

func (r *bookingRepository) List(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := r.list("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	data, _, err := r.q.From(tableBookings).
		Select(bookingSelect, "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return first[model.Booking](data, "booking")
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.Touch(time.Now().UTC())

	if _, _, err := r.q.From(tableBookings).
		Insert(bookingInsertRow(booking), false, "", returnRows, "").
		Execute(); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return r.Get(ctx, booking.ID)
}

func (r *bookingRepository) Update(ctx context.Context, id uuid.UUID, update model.BookingUpdate) (*model.Booking, error) {
	fields := update.Fields()
	if len(fields) == 0 {
		return r.Get(ctx, id)
	}
	fields["updated_at"] = time.Now().UTC()

	data, _, err := r.q.From(tableBookings).
		Update(fields, returnRows, "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	if _, err := first[model.Booking](data, "booking update"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *bookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	data, _, err := r.q.From(tableBookings).
		Delete(returnRows, "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	_, err = first[model.Booking](data, "booking delete")
	return err
}

func (r *bookingRepository) ListByStatus(ctx context.Context, status model.Status) ([]*model.Booking, error) {
	bookings, err := r.list("status", string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by status: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListByType(ctx context.Context, bookingType model.BookingType) ([]*model.Booking, error) {
	bookings, err := r.list("booking_type", string(bookingType))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by type: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListByCreator(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	bookings, err := r.list("created_by", userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by creator: %w", err)
	}
	return bookings, nil
}

var _ repository.BookingRepository = (*bookingRepository)(nil)
