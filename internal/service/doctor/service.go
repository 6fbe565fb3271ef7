package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
	"github.com/jwalitptl/hospital-api/internal/service"
	pkgerrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

const listCacheKey = "doctors:all"

var trackedFields = []string{"first_name", "family_name", "date_of_birth", "expertise", "gender", "extra_info", "email"}

type Service struct {
	repo      repository.DoctorRepository
	surgeries repository.SurgeryRepository
	tracker   *service.Tracker
	validator *validator.Validator
	cache     *cache.Cache
	loc       *time.Location
}

func NewService(
	repo repository.DoctorRepository,
	surgeries repository.SurgeryRepository,
	tracker *service.Tracker,
	cacheTTL time.Duration,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:      repo,
		surgeries: surgeries,
		tracker:   tracker,
		validator: validator.New(),
		cache:     cache.New(cacheTTL, 2*cacheTTL),
		loc:       loc,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	doctor := &model.Doctor{}
	if err := s.apply(req, doctor); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}
	s.cache.Flush()

	s.tracker.Record(ctx, service.Change{
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityDoctor,
		EntityID:   doctor.ID,
		EventType:  event.DoctorCreated,
		Payload:    event.RecordPayload{ID: doctor.ID, Name: doctor.Name()},
	})
	return doctor, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.NotFound("doctor", err)
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return doctor, nil
}

// Detail returns the doctor with every surgery they are assigned to.
func (s *Service) Detail(ctx context.Context, id string) (*model.DoctorDetail, error) {
	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	surgeries, err := s.surgeries.ListByDoctor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor surgeries: %w", err)
	}
	return &model.DoctorDetail{Doctor: doctor, Surgeries: surgeries}, nil
}

func (s *Service) Update(ctx context.Context, id string, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *doctor

	if err := s.apply(req, doctor); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, doctor); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.NotFound("doctor", err)
		}
		return nil, fmt.Errorf("failed to update doctor: %w", err)
	}
	s.cache.Flush()

	s.tracker.Record(ctx, service.Change{
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityDoctor,
		EntityID:   doctor.ID,
		EventType:  event.DoctorUpdated,
		Payload:    event.RecordPayload{ID: doctor.ID, Name: doctor.Name()},
		Changes:    event.ExtractChanges(&before, doctor, trackedFields),
	})
	return doctor, nil
}

// Delete removes a doctor that no surgery references.
func (s *Service) Delete(ctx context.Context, id string) error {
	doctor, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	linked, err := s.surgeries.ListByDoctor(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check doctor surgeries: %w", err)
	}
	if len(linked) > 0 {
		return pkgerrors.Conflict(
			fmt.Sprintf("Doctor %s is assigned to %d surgeries; delete or reassign them first", doctor.Name(), len(linked)),
			surgeryIDs(linked),
		)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.NotFound("doctor", err)
		}
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	s.cache.Flush()

	s.tracker.Record(ctx, service.Change{
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntityDoctor,
		EntityID:   id,
		EventType:  event.DoctorDeleted,
		Payload:    event.RecordPayload{ID: id, Name: doctor.Name()},
	})
	return nil
}

// List returns every doctor sorted by name. The result is cached until the
// next write or the TTL, whichever comes first.
func (s *Service) List(ctx context.Context) ([]*model.Doctor, error) {
	if cached, ok := s.cache.Get(listCacheKey); ok {
		return cloneDoctors(cached.([]*model.Doctor)), nil
	}

	doctors, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	s.cache.SetDefault(listCacheKey, cloneDoctors(doctors))
	return doctors, nil
}

// cloneDoctors keeps callers from editing the cached list in place.
func cloneDoctors(doctors []*model.Doctor) []*model.Doctor {
	out := make([]*model.Doctor, len(doctors))
	for i, d := range doctors {
		out[i] = d.Clone()
	}
	return out
}

func (s *Service) apply(req *model.CreateDoctorRequest, doctor *model.Doctor) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	dob, err := scheduling.ParseDay(req.DateOfBirth, s.loc)
	if err != nil {
		return pkgerrors.BadRequest(err.Error(), err)
	}
	req.Apply(doctor, optional(dob))
	return nil
}

func optional(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func surgeryIDs(surgeries []*model.Surgery) []string {
	ids := make([]string, len(surgeries))
	for i, s := range surgeries {
		ids[i] = s.ID
	}
	return ids
}
