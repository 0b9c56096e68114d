package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/datastore"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
)

type failingPatients struct {
	repository.PatientRepository
}

func (failingPatients) Update(context.Context, uuid.UUID, model.PatientUpdate) (*model.Patient, error) {
	return nil, errors.New("store unavailable")
}

func TestService_CreateAndSearch(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	svc := NewService(repos.Patients, Options{})

	jane, err := svc.CreatePatient(ctx, &model.CreatePatientRequest{FullName: " Jane Doe ", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", jane.FullName)

	_, err = svc.CreatePatient(ctx, &model.CreatePatientRequest{FullName: "Bob Roe", Email: "bob@clinic.org"})
	require.NoError(t, err)

	all, err := svc.ListPatients(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := svc.ListPatients(ctx, "JANE")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, jane.ID, found[0].ID)

	found, err = svc.ListPatients(ctx, "clinic.org")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestService_CreateValidation(t *testing.T) {
	svc := NewService(memory.NewStore().Repositories().Patients, Options{})

	_, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{FullName: "Jane"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))

	dob := "15-06-1990"
	_, err = svc.CreatePatient(context.Background(), &model.CreatePatientRequest{FullName: "Jane", Email: "jane@example.com", DateOfBirth: &dob})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestService_GetAndDeleteMissing(t *testing.T) {
	svc := NewService(memory.NewStore().Repositories().Patients, Options{})

	_, err := svc.GetPatient(context.Background(), uuid.New())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))

	err = svc.DeletePatient(context.Background(), uuid.New())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestService_UpdateThroughView(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	jane, err := repos.Patients.Create(ctx, &model.Patient{FullName: "Jane Doe", Email: "jane@example.com"})
	require.NoError(t, err)

	view := datastore.New(repos.Bookings, repos.Patients, datastore.Options{RefreshInterval: time.Hour})
	require.NoError(t, view.Init(ctx, nil))
	defer view.Teardown()

	name := "Jane Smith"
	update := model.PatientUpdate{FullName: &name}

	failing := NewService(failingPatients{repos.Patients}, Options{View: view})
	_, err = failing.UpdatePatient(ctx, jane.ID, update)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInternal))
	assert.Equal(t, "Jane Doe", view.Snapshot().Patients[0].FullName)

	svc := NewService(repos.Patients, Options{View: view})
	updated, err := svc.UpdatePatient(ctx, jane.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", updated.FullName)
	assert.Equal(t, "Jane Smith", view.Snapshot().Patients[0].FullName)
}

func TestService_ListPatientsByUser(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	svc := NewService(repos.Patients, Options{})
	owner := uuid.New()

	_, err := svc.CreatePatient(ctx, &model.CreatePatientRequest{UserID: &owner, FullName: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)
	_, err = svc.CreatePatient(ctx, &model.CreatePatientRequest{FullName: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	mine, err := svc.ListPatientsByUser(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
