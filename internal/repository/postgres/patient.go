package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
)

const patientColumns = `
	id, user_id, full_name, email, phone, date_of_birth::text AS date_of_birth,
	address, emergency_contact_name, emergency_contact_phone, created_at, updated_at
`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) (*model.Patient, error) {
	query := `
		INSERT INTO patients (
			id, user_id, full_name, email, phone, date_of_birth, address,
			emergency_contact_name, emergency_contact_phone, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.Touch(time.Now().UTC())

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.UserID,
		patient.FullName,
		patient.Email,
		patient.Phone,
		patient.DateOfBirth,
		patient.Address,
		patient.EmergencyContactName,
		patient.EmergencyContactPhone,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	created := *patient
	return &created, nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, id uuid.UUID, update model.PatientUpdate) (*model.Patient, error) {
	fields := update.Fields()
	if len(fields) == 0 {
		return r.Get(ctx, id)
	}
	fields["updated_at"] = time.Now().UTC()
	set, args := setClause(fields)
	query := fmt.Sprintf(`UPDATE patients SET %s WHERE id = $%d RETURNING %s`, set, len(args)+1, patientColumns)
	args = append(args, id)

	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
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

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY full_name ASC`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Search matches name or email, case-insensitively.
func (r *patientRepository) Search(ctx context.Context, q string) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + `
		FROM patients
		WHERE full_name ILIKE $1 OR email ILIKE $1
		ORDER BY full_name ASC`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, "%"+q+"%"); err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE user_id = $1 ORDER BY full_name ASC`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list patients by user: %w", err)
	}
	return patients, nil
}
