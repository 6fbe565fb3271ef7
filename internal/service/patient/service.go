package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
	"github.com/jwalitptl/hospital-api/internal/service"
	pkgerrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

var trackedFields = []string{"first_name", "family_name", "date_of_birth", "date_of_death", "diagnosis", "treatment"}

type Service struct {
	repo      repository.PatientRepository
	surgeries repository.SurgeryRepository
	tracker   *service.Tracker
	validator *validator.Validator
	loc       *time.Location
}

func NewService(repo repository.PatientRepository, surgeries repository.SurgeryRepository, tracker *service.Tracker, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:      repo,
		surgeries: surgeries,
		tracker:   tracker,
		validator: validator.New(),
		loc:       loc,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{}
	if err := s.apply(req, patient); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.tracker.Record(ctx, service.Change{
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityPatient,
		EntityID:   patient.ID,
		EventType:  event.PatientCreated,
		Payload:    event.RecordPayload{ID: patient.ID, Name: patient.Name()},
	})
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Detail(ctx context.Context, id string) (*model.PatientDetail, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	surgeries, err := s.surgeries.ListByPatient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient surgeries: %w", err)
	}
	return &model.PatientDetail{Patient: patient, Surgeries: surgeries}, nil
}

func (s *Service) Update(ctx context.Context, id string, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *patient

	if err := s.apply(req, patient); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.tracker.Record(ctx, service.Change{
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityPatient,
		EntityID:   patient.ID,
		EventType:  event.PatientUpdated,
		Payload:    event.RecordPayload{ID: patient.ID, Name: patient.Name()},
		Changes:    event.ExtractChanges(&before, patient, trackedFields),
	})
	return patient, nil
}

// Delete removes a patient that has no surgeries.
func (s *Service) Delete(ctx context.Context, id string) error {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	linked, err := s.surgeries.ListByPatient(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check patient surgeries: %w", err)
	}
	if len(linked) > 0 {
		ids := make([]string, len(linked))
		for i, sg := range linked {
			ids[i] = sg.ID
		}
		return pkgerrors.Conflict(
			fmt.Sprintf("Patient %s has %d surgeries; delete them first", patient.Name(), len(linked)),
			ids,
		)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.NotFound("patient", err)
		}
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	s.tracker.Record(ctx, service.Change{
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntityPatient,
		EntityID:   id,
		EventType:  event.PatientDeleted,
		Payload:    event.RecordPayload{ID: id, Name: patient.Name()},
	})
	return nil
}

func (s *Service) List(ctx context.Context) ([]*model.Patient, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) apply(req *model.CreatePatientRequest, patient *model.Patient) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	dob, err := scheduling.ParseDay(req.DateOfBirth, s.loc)
	if err != nil {
		return pkgerrors.BadRequest(err.Error(), err)
	}
	dod, err := scheduling.ParseDay(req.DateOfDeath, s.loc)
	if err != nil {
		return pkgerrors.BadRequest(err.Error(), err)
	}
	if !dob.IsZero() && !dod.IsZero() && dod.Before(dob) {
		return pkgerrors.Validation([]pkgerrors.FieldError{
			{Field: "date_of_death", Message: "must not be before date of birth"},
		})
	}

	patient.FirstName = req.FirstName
	patient.FamilyName = req.FamilyName
	patient.DateOfBirth = optional(dob)
	patient.DateOfDeath = optional(dod)
	patient.Diagnosis = req.Diagnosis
	patient.Treatment = req.Treatment
	return nil
}

func optional(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
