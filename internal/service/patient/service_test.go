package patient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/service"
	"github.com/jwalitptl/hospital-api/internal/service/audit"
	pkgerrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/event"
)

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error {
	return m.Called(ctx, eventType, aggregateID, payload).Error(0)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Log(ctx context.Context, action, entityType, entityID string, opts *audit.LogOptions) error {
	return m.Called(ctx, action, entityType, entityID, opts).Error(0)
}

func setup(t *testing.T) (*Service, *mockEmitter, *mockRecorder, repository.SurgeryRepository) {
	t.Helper()
	store := memory.NewStore()
	events := &mockEmitter{}
	auditor := &mockRecorder{}
	surgeries := memory.NewSurgeryRepository(store)
	svc := NewService(memory.NewPatientRepository(store), surgeries, service.NewTracker(events, auditor, nil), time.UTC)
	return svc, events, auditor, surgeries
}

func TestCreateEmitsAndAudits(t *testing.T) {
	svc, events, auditor, _ := setup(t)
	events.On("Emit", mock.Anything, event.PatientCreated, mock.AnythingOfType("string"), mock.Anything).Return(nil).Once()
	auditor.On("Log", mock.Anything, model.AuditActionCreate, model.AuditEntityPatient, mock.AnythingOfType("string"), (*audit.LogOptions)(nil)).Return(nil).Once()

	patient, err := svc.Create(context.Background(), &model.CreatePatientRequest{
		FirstName:   "Ana",
		FamilyName:  "Kovač",
		DateOfBirth: "1950-02-01",
		DateOfDeath: "2020-11-30",
		Diagnosis:   "Appendicitis",
	})
	require.NoError(t, err)
	assert.Equal(t, "February 1, 1950 - November 30, 2020", patient.Lifespan())

	events.AssertExpectations(t)
	auditor.AssertExpectations(t)
}

func TestCreateRejectsDeathBeforeBirth(t *testing.T) {
	svc, _, _, _ := setup(t)

	_, err := svc.Create(context.Background(), &model.CreatePatientRequest{
		FirstName:   "Ana",
		FamilyName:  "Kovač",
		DateOfBirth: "1950-02-01",
		DateOfDeath: "1949-01-01",
		Diagnosis:   "Appendicitis",
	})

	appErr, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, []pkgerrors.FieldError{{Field: "date_of_death", Message: "must not be before date of birth"}}, appErr.Details)
}

func TestCreateRequiresDiagnosis(t *testing.T) {
	svc, _, _, _ := setup(t)
	_, err := svc.Create(context.Background(), &model.CreatePatientRequest{FirstName: "Ana", FamilyName: "Kovač"})
	assert.Equal(t, 400, pkgerrors.StatusOf(err))
}

func TestDeleteRefusedWithSurgeries(t *testing.T) {
	svc, events, auditor, surgeries := setup(t)
	events.On("Emit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	auditor.On("Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	patient, err := svc.Create(ctx, &model.CreatePatientRequest{FirstName: "Ana", FamilyName: "Kovač", Diagnosis: "Fracture"})
	require.NoError(t, err)
	require.NoError(t, surgeries.Create(ctx, &model.Surgery{Title: "Cast", PatientID: patient.ID, DoctorIDs: []string{"d1"}}))

	assert.Equal(t, 409, pkgerrors.StatusOf(svc.Delete(ctx, patient.ID)))

	detail, err := svc.Detail(ctx, patient.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Surgeries, 1)
}

func TestUpdateRecordsChanges(t *testing.T) {
	svc, events, auditor, _ := setup(t)
	events.On("Emit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	auditor.On("Log", mock.Anything, model.AuditActionCreate, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	auditor.On("Log", mock.Anything, model.AuditActionUpdate, model.AuditEntityPatient, mock.Anything,
		mock.MatchedBy(func(opts *audit.LogOptions) bool {
			changes, ok := opts.Changes.(map[string]interface{})
			_, diag := changes["diagnosis"]
			return ok && diag && len(changes) == 1
		})).Return(nil).Once()
	ctx := context.Background()

	patient, err := svc.Create(ctx, &model.CreatePatientRequest{FirstName: "Ana", FamilyName: "Kovač", Diagnosis: "Fracture"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, patient.ID, &model.UpdatePatientRequest{FirstName: "Ana", FamilyName: "Kovač", Diagnosis: "Healed"})
	require.NoError(t, err)
	assert.Equal(t, "Healed", updated.Diagnosis)
	auditor.AssertExpectations(t)
}
