package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
)

const bookingSelect = `
	SELECT b.id, b.patient_id, b.appointment_date::text AS appointment_date,
		   b.appointment_time::text AS appointment_time, b.booking_type, b.status,
		   b.notes, b.created_by, b.provider_name, b.chief_complaint,
		   b.room_location, b.is_adhoc, b.created_at, b.updated_at,
		   p.user_id AS patient_user_id, p.full_name AS patient_full_name,
		   p.email AS patient_email, p.phone AS patient_phone,
		   p.date_of_birth::text AS patient_date_of_birth, p.address AS patient_address,
		   p.emergency_contact_name AS patient_emergency_contact_name,
		   p.emergency_contact_phone AS patient_emergency_contact_phone,
		   p.created_at AS patient_created_at, p.updated_at AS patient_updated_at
	FROM bookings b
	LEFT JOIN patients p ON p.id = b.patient_id
`

const bookingOrder = ` ORDER BY b.appointment_date ASC, b.appointment_time ASC`

// bookingRow is a booking joined with its patient's columns.
type bookingRow struct {
	model.Booking
	PatientUserID                *uuid.UUID `db:"patient_user_id"`
	PatientFullName              *string    `db:"patient_full_name"`
	PatientEmail                 *string    `db:"patient_email"`
	PatientPhone                 *string    `db:"patient_phone"`
	PatientDateOfBirth           *string    `db:"patient_date_of_birth"`
	PatientAddress               *string    `db:"patient_address"`
	PatientEmergencyContactName  *string    `db:"patient_emergency_contact_name"`
	PatientEmergencyContactPhone *string    `db:"patient_emergency_contact_phone"`
	PatientCreatedAt             *time.Time `db:"patient_created_at"`
	PatientUpdatedAt             *time.Time `db:"patient_updated_at"`
}

func (r bookingRow) toModel() *model.Booking {
	b := r.Booking
	if r.PatientFullName != nil {
		p := &model.Patient{
			ID:                    b.PatientID,
			UserID:                r.PatientUserID,
			FullName:              *r.PatientFullName,
			Phone:                 r.PatientPhone,
			DateOfBirth:           r.PatientDateOfBirth,
			Address:               r.PatientAddress,
			EmergencyContactName:  r.PatientEmergencyContactName,
			EmergencyContactPhone: r.PatientEmergencyContactPhone,
		}
		if r.PatientEmail != nil {
			p.Email = *r.PatientEmail
		}
		if r.PatientCreatedAt != nil {
			p.CreatedAt = *r.PatientCreatedAt
		}
		if r.PatientUpdatedAt != nil {
			p.UpdatedAt = *r.PatientUpdatedAt
		}
		b.Patient = p
	}
	return &b
}

func (r *bookingRepository) selectBookings(ctx context.Context, where string, args ...interface{}) ([]*model.Booking, error) {
	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, bookingSelect+where+bookingOrder, args...); err != nil {
		return nil, err
	}
	bookings := make([]*model.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, row.toModel())
	}
	return bookings, nil
}

func getBooking(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*model.Booking, error) {
	var row bookingRow
	err := sqlx.GetContext(ctx, q, &row, bookingSelect+` WHERE b.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return row.toModel(), nil
}

func (r *bookingRepository) List(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := r.selectBookings(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return getBooking(ctx, r.db, id)
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	query := `
		INSERT INTO bookings (
			id, patient_id, appointment_date, appointment_time, booking_type,
			status, notes, created_by, provider_name, chief_complaint,
			room_location, is_adhoc, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.Touch(time.Now().UTC())

	var created *model.Booking
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			booking.ID,
			booking.PatientID,
			booking.AppointmentDate,
			booking.AppointmentTime,
			booking.BookingType,
			booking.Status,
			booking.Notes,
			booking.CreatedBy,
			booking.ProviderName,
			booking.ChiefComplaint,
			booking.RoomLocation,
			booking.IsAdhoc,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		created, err = getBooking(ctx, tx, booking.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *bookingRepository) Update(ctx context.Context, id uuid.UUID, update model.BookingUpdate) (*model.Booking, error) {
	fields := update.Fields()
	if len(fields) == 0 {
		return r.Get(ctx, id)
	}
	fields["updated_at"] = time.Now().UTC()
	set, args := setClause(fields)
	query := fmt.Sprintf(`UPDATE bookings SET %s WHERE id = $%d`, set, len(args)+1)
	args = append(args, id)

	var updated *model.Booking
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}
		updated, err = getBooking(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *bookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *bookingRepository) ListByStatus(ctx context.Context, status model.Status) ([]*model.Booking, error) {
	bookings, err := r.selectBookings(ctx, ` WHERE b.status = $1`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by status: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListByType(ctx context.Context, bookingType model.BookingType) ([]*model.Booking, error) {
	bookings, err := r.selectBookings(ctx, ` WHERE b.booking_type = $1`, bookingType)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by type: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListByCreator(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	bookings, err := r.selectBookings(ctx, ` WHERE b.created_by = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by creator: %w", err)
	}
	return bookings, nil
}
