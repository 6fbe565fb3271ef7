package doctor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/service"
	pkgerrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// countingRepo counts List calls so cache hits can be observed.
type countingRepo struct {
	repository.DoctorRepository
	lists int
}

func (r *countingRepo) List(ctx context.Context) ([]*model.Doctor, error) {
	r.lists++
	return r.DoctorRepository.List(ctx)
}

func setup(t *testing.T) (*Service, *countingRepo, repository.SurgeryRepository) {
	t.Helper()
	store := memory.NewStore()
	repo := &countingRepo{DoctorRepository: memory.NewDoctorRepository(store)}
	surgeries := memory.NewSurgeryRepository(store)
	return NewService(repo, surgeries, service.NewTracker(nil, nil, nil), time.Minute, time.UTC), repo, surgeries
}

func TestCreateValidates(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Create(context.Background(), &model.CreateDoctorRequest{FamilyName: "House", DateOfBirth: "1959-13-40"})
	require.Error(t, err)

	appErr, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.ErrBadRequest, appErr.Code)
}

func TestCreateAndGet(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &model.CreateDoctorRequest{
		FirstName:   "Gregory",
		FamilyName:  "House",
		DateOfBirth: "1959-06-11",
		Expertise:   []string{"diagnostics"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "House, Gregory", created.Name())
	assert.Equal(t, []string{}, created.Gender)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1959, got.DateOfBirth.Year())

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, 404, pkgerrors.StatusOf(err))
}

func TestListIsCachedUntilWrite(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateDoctorRequest{FirstName: "James", FamilyName: "Wilson"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		doctors, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, doctors, 1)
	}
	assert.Equal(t, 1, repo.lists)

	_, err = svc.Create(ctx, &model.CreateDoctorRequest{FirstName: "Lisa", FamilyName: "Cuddy"})
	require.NoError(t, err)

	doctors, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 2)
	assert.Equal(t, 2, repo.lists)
	assert.Equal(t, "Cuddy, Lisa", doctors[0].Name())
}

func TestListReturnsCopiesOfCachedDoctors(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateDoctorRequest{
		FirstName:   "James",
		FamilyName:  "Wilson",
		DateOfBirth: "1969-03-05",
		Expertise:   []string{"oncology"},
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		doctors, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, doctors, 1)

		doctors[0].FirstName = "Changed"
		doctors[0].Expertise[0] = "changed"
		*doctors[0].DateOfBirth = time.Time{}
		doctors[0] = nil
	}

	doctors, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Wilson, James", doctors[0].Name())
	assert.Equal(t, []string{"oncology"}, doctors[0].Expertise)
	assert.Equal(t, 1969, doctors[0].DateOfBirth.Year())
	assert.Equal(t, 1, repo.lists)
}

func TestDeleteRefusedWhileAssigned(t *testing.T) {
	svc, _, surgeries := setup(t)
	ctx := context.Background()

	doctor, err := svc.Create(ctx, &model.CreateDoctorRequest{FirstName: "Gregory", FamilyName: "House"})
	require.NoError(t, err)
	surgery := &model.Surgery{Title: "Biopsy", DoctorIDs: []string{doctor.ID}, Date: time.Now()}
	require.NoError(t, surgeries.Create(ctx, surgery))

	err = svc.Delete(ctx, doctor.ID)
	assert.Equal(t, 409, pkgerrors.StatusOf(err))

	detail, err := svc.Detail(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Surgeries, 1)

	require.NoError(t, surgeries.Delete(ctx, surgery.ID))
	require.NoError(t, svc.Delete(ctx, doctor.ID))
	_, err = svc.Get(ctx, doctor.ID)
	assert.Equal(t, 404, pkgerrors.StatusOf(err))
}
