package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

type patientRepository struct {
	q Querier
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	data, _, err := r.q.From(tablePatients).
		Select("*", "", false).
		Order("full_name", ascending()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return decode[model.Patient](data, "patients")
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	data, _, err := r.q.From(tablePatients).
		Select("*", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return first[model.Patient](data, "patient")
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) (*model.Patient, error) {
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.Touch(time.Now().UTC())

	data, _, err := r.q.From(tablePatients).
		Insert(patient, false, "", returnRows, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return first[model.Patient](data, "patient insert")
}

func (r *patientRepository) Update(ctx context.Context, id uuid.UUID, update model.PatientUpdate) (*model.Patient, error) {
	fields := update.Fields()
	if len(fields) == 0 {
		return r.Get(ctx, id)
	}
	fields["updated_at"] = time.Now().UTC()

	data, _, err := r.q.From(tablePatients).
		Update(fields, returnRows, "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return first[model.Patient](data, "patient update")
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	data, _, err := r.q.From(tablePatients).
		Delete(returnRows, "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	_, err = first[model.Patient](data, "patient delete")
	return err
}

func (r *patientRepository) Search(ctx context.Context, query string) ([]*model.Patient, error) {
	data, _, err := r.q.From(tablePatients).
		Select("*", "", false).
		Or(ilikeFilter(query, "full_name", "email"), "").
		Order("full_name", ascending()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return decode[model.Patient](data, "patients")
}

func (r *patientRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Patient, error) {
	data, _, err := r.q.From(tablePatients).
		Select("*", "", false).
		Eq("user_id", userID.String()).
		Order("full_name", ascending()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list patients by user: %w", err)
	}
	return decode[model.Patient](data, "patients")
}
