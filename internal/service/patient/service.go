package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/datastore"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/validator"
)

type Options struct {
	View      *datastore.Store
	Validator validator.Validator
	Logger    *logger.Logger
}

type Service struct {
	repo      repository.PatientRepository
	view      *datastore.Store
	validator validator.Validator
	logger    *logger.Logger
}

func NewService(repo repository.PatientRepository, opts Options) *Service {
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Service{
		repo:      repo,
		view:      opts.View,
		validator: opts.Validator,
		logger:    opts.Logger,
	}
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	patient := &model.Patient{
		ID:                    uuid.New(),
		UserID:                req.UserID,
		FullName:              strings.TrimSpace(req.FullName),
		Email:                 strings.TrimSpace(req.Email),
		Phone:                 req.Phone,
		DateOfBirth:           req.DateOfBirth,
		Address:               req.Address,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
	}

	persist := func(ctx context.Context) (*model.Patient, error) {
		return s.repo.Create(ctx, patient)
	}

	var created *model.Patient
	var err error
	if s.view != nil {
		tentative := *patient
		res := s.view.AddPatientOptimistic(ctx, &tentative, persist)
		created, err = res.Patient, res.Err
	} else {
		created, err = persist(ctx)
	}
	if err != nil {
		s.logger.Error(err, "Failed to create patient")
		return nil, apperrors.Internal(fmt.Errorf("failed to create patient: %w", err))
	}

	s.logger.Info("Patient created", "patient_id", created.ID.String())
	return created, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translate("failed to get patient", err)
	}
	return patient, nil
}

// ListPatients returns every patient, or those matching query by name or email.
func (s *Service) ListPatients(ctx context.Context, query string) ([]*model.Patient, error) {
	query = strings.TrimSpace(query)

	var patients []*model.Patient
	var err error
	if query == "" {
		patients, err = s.repo.List(ctx)
	} else {
		patients, err = s.repo.Search(ctx, query)
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list patients: %w", err))
	}
	return patients, nil
}

func (s *Service) ListPatientsByUser(ctx context.Context, userID uuid.UUID) ([]*model.Patient, error) {
	patients, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list patients: %w", err))
	}
	return patients, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, update model.PatientUpdate) (*model.Patient, error) {
	if err := s.validator.Validate(update); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	persist := func(ctx context.Context) (*model.Patient, error) {
		return s.repo.Update(ctx, id, update)
	}

	var updated *model.Patient
	var err error
	if s.view != nil {
		res := s.view.UpdatePatientOptimistic(ctx, id, update, persist)
		updated, err = res.Patient, res.Err
	} else {
		updated, err = persist(ctx)
	}
	if err != nil {
		return nil, translate("failed to update patient", err)
	}
	return updated, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	persist := func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	}

	var err error
	if s.view != nil {
		err = s.view.DeletePatientOptimistic(ctx, id, persist).Err
	} else {
		err = persist(ctx)
	}
	if err != nil {
		return translate("failed to delete patient", err)
	}
	s.logger.Info("Patient deleted", "patient_id", id.String())
	return nil
}

func translate(msg string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("patient", err)
	}
	return apperrors.Internal(fmt.Errorf("%s: %w", msg, err))
}
