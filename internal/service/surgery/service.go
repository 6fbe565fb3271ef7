package surgery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
	"github.com/jwalitptl/hospital-api/internal/service"
	pkgerrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

var trackedFields = []string{"title", "patient_id", "doctor_ids", "date", "summary", "active"}

type Service struct {
	surgeries repository.SurgeryRepository
	doctors   repository.DoctorRepository
	patients  repository.PatientRepository
	bookings  repository.BookingRepository
	guard     *scheduling.Guard
	tracker   *service.Tracker
	validator *validator.Validator
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

func NewService(
	surgeries repository.SurgeryRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	bookings repository.BookingRepository,
	guard *scheduling.Guard,
	tracker *service.Tracker,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		surgeries: surgeries,
		doctors:   doctors,
		patients:  patients,
		bookings:  bookings,
		guard:     guard,
		tracker:   tracker,
		validator: validator.New(),
		metrics:   m,
		logger:    log,
	}
}

// draft is a validated submission with its doctor names resolved.
type draft struct {
	surgery *model.Surgery
	names   map[string]string
	day     string
}

// CreateForm lists the patients and the doctors not committed to any active
// surgery.
func (s *Service) CreateForm(ctx context.Context) (*model.SurgeryForm, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	doctors, err := s.doctors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	active, err := s.surgeries.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active surgeries: %w", err)
	}

	return &model.SurgeryForm{
		Patients: patients,
		Doctors:  scheduling.Options(scheduling.AvailableDoctors(doctors, active)),
	}, nil
}

// UpdateForm returns the surgery with every doctor, marking those assigned.
func (s *Service) UpdateForm(ctx context.Context, id string) (*model.SurgeryForm, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	doctors, err := s.doctors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	return &model.SurgeryForm{
		Surgery:  detail,
		Patients: patients,
		Doctors:  scheduling.MarkSelected(doctors, detail.DoctorIDs),
	}, nil
}

// Check runs the conflict rules for a submission without writing anything.
// id is the surgery being edited, empty for a new one.
func (s *Service) Check(ctx context.Context, id string, req *model.SurgeryRequest) (scheduling.Result, error) {
	d, err := s.prepare(ctx, id, req)
	if err != nil {
		return scheduling.Result{}, err
	}
	return s.check(ctx, d)
}

func (s *Service) Create(ctx context.Context, req *model.SurgeryRequest) (*model.SurgeryDetail, error) {
	d, err := s.prepare(ctx, "", req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchedulable(ctx, d); err != nil {
		return nil, err
	}

	surgery := d.surgery
	surgery.ID = uuid.NewString()
	if err := s.reserve(ctx, d); err != nil {
		return nil, err
	}

	if err := s.surgeries.Create(ctx, surgery); err != nil {
		s.release(ctx, surgery.ID)
		return nil, fmt.Errorf("failed to create surgery: %w", err)
	}

	s.tracker.Record(ctx, service.Change{
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntitySurgery,
		EntityID:   surgery.ID,
		EventType:  event.SurgeryCreated,
		Payload:    event.NewSurgeryPayload(surgery, d.day),
	})
	return s.populate(ctx, surgery)
}

func (s *Service) Update(ctx context.Context, id string, req *model.SurgeryRequest) (*model.SurgeryDetail, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	d, err := s.prepare(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchedulable(ctx, d); err != nil {
		return nil, err
	}

	surgery := d.surgery
	surgery.ID = existing.ID
	surgery.CreatedAt = existing.CreatedAt
	if err := s.reserve(ctx, d); err != nil {
		return nil, err
	}

	if err := s.surgeries.Update(ctx, surgery); err != nil {
		// Put the bookings back the way the stored surgery holds them.
		s.syncBookings(ctx, existing)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.NotFound("surgery", err)
		}
		return nil, fmt.Errorf("failed to update surgery: %w", err)
	}
	s.syncBookings(ctx, surgery)

	s.tracker.Record(ctx, service.Change{
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntitySurgery,
		EntityID:   surgery.ID,
		EventType:  event.SurgeryUpdated,
		Payload:    event.NewSurgeryPayload(surgery, d.day),
		Changes:    event.ExtractChanges(existing, surgery, trackedFields),
	})
	return s.populate(ctx, surgery)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	// Bookings go first so a failed release leaves the surgery in place
	// rather than an orphaned booking.
	if err := s.bookings.Release(ctx, id); err != nil {
		return fmt.Errorf("failed to release bookings: %w", err)
	}
	if err := s.surgeries.Delete(ctx, id); err != nil {
		s.rebook(ctx, existing)
		if errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.NotFound("surgery", err)
		}
		return fmt.Errorf("failed to delete surgery: %w", err)
	}

	s.tracker.Record(ctx, service.Change{
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntitySurgery,
		EntityID:   id,
		EventType:  event.SurgeryDeleted,
		Payload:    event.NewSurgeryPayload(existing, s.dayKey(existing.Date)),
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.SurgeryDetail, error) {
	surgery, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, surgery)
}

// List returns surgeries matching filters. Without a date every day matches.
func (s *Service) List(ctx context.Context, filters model.SurgeryFilters) ([]*model.SurgeryDetail, error) {
	date, err := scheduling.ParseDay(filters.Date, s.guard.Location())
	if err != nil {
		return nil, pkgerrors.BadRequest(err.Error(), err)
	}

	surgeries, err := s.surgeries.List(ctx, repository.SurgeryFilters{
		Window:    scheduling.DayWindow(date, s.guard.Location()),
		Active:    filters.Active,
		DoctorIDs: model.NormalizeIDs(filters.DoctorIDs),
		PatientID: filters.PatientID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list surgeries: %w", err)
	}
	return s.populateAll(ctx, surgeries)
}

func (s *Service) find(ctx context.Context, id string) (*model.Surgery, error) {
	surgery, err := s.surgeries.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.NotFound("surgery", err)
		}
		return nil, fmt.Errorf("failed to get surgery: %w", err)
	}
	return surgery, nil
}

// prepare validates req and resolves its references.
func (s *Service) prepare(ctx context.Context, id string, req *model.SurgeryRequest) (*draft, error) {
	req.Doctor = model.NormalizeIDs(req.Doctor)
	req.Title = strings.TrimSpace(req.Title)
	req.Summary = strings.TrimSpace(req.Summary)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	date, err := scheduling.ParseDay(req.Date, s.guard.Location())
	if err != nil {
		return nil, pkgerrors.Validation([]pkgerrors.FieldError{{Field: "date", Message: err.Error()}})
	}

	var fields []pkgerrors.FieldError
	if _, err := s.patients.Get(ctx, req.Patient); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to get patient: %w", err)
		}
		fields = append(fields, pkgerrors.FieldError{Field: "patient", Message: "does not exist"})
	}

	doctors, err := s.doctors.FindByIDs(ctx, req.Doctor)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctors: %w", err)
	}
	names := make(map[string]string, len(doctors))
	for _, d := range doctors {
		names[d.ID] = d.Name()
	}
	var unknown []string
	for _, doctorID := range req.Doctor {
		if _, ok := names[doctorID]; !ok {
			unknown = append(unknown, doctorID)
		}
	}
	if len(unknown) > 0 {
		fields = append(fields, pkgerrors.FieldError{
			Field:   "doctor",
			Message: "unknown doctor: " + strings.Join(unknown, ", "),
		})
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation(fields)
	}

	return &draft{
		surgery: &model.Surgery{
			Base:      model.Base{ID: id},
			Title:     req.Title,
			PatientID: req.Patient,
			DoctorIDs: req.Doctor,
			Date:      date,
			Summary:   req.Summary,
			Active:    req.Active,
		},
		names: names,
		day:   s.dayKey(date),
	}, nil
}

func (s *Service) check(ctx context.Context, d *draft) (scheduling.Result, error) {
	candidate := scheduling.Candidate{
		ID:        d.surgery.ID,
		DoctorIDs: d.surgery.DoctorIDs,
		Date:      d.surgery.Date,
		Active:    d.surgery.Active,
	}
	if !candidate.Active {
		return scheduling.Result{}, nil
	}

	existing, err := s.surgeries.FindActiveOnDay(ctx, s.guard.Window(candidate))
	if err != nil {
		return scheduling.Result{}, fmt.Errorf("failed to load active surgeries: %w", err)
	}

	return s.guard.CheckConflict(candidate, existing, d.names), nil
}

func (s *Service) ensureSchedulable(ctx context.Context, d *draft) error {
	result, err := s.check(ctx, d)
	if err != nil {
		return err
	}
	if result.HasConflict() {
		s.countConflict("guard")
		return pkgerrors.Conflict(result.Message(), result)
	}
	return nil
}

// reserve claims the doctors' day in the store, which rejects a booking a
// concurrent request took after the guard ran.
func (s *Service) reserve(ctx context.Context, d *draft) error {
	if !d.surgery.Active {
		return nil
	}

	err := s.bookings.Reserve(ctx, d.surgery.ID, d.surgery.DoctorIDs, d.day)
	var taken *repository.BookingTakenError
	if errors.As(err, &taken) {
		s.countConflict("booking")
		doctors := make([]scheduling.ConflictingDoctor, 0, len(taken.DoctorIDs))
		for _, id := range taken.DoctorIDs {
			doctors = append(doctors, scheduling.ConflictingDoctor{ID: id, Name: d.names[id]})
		}
		result := s.guard.Conflict(doctors, d.surgery.Date)
		return pkgerrors.Conflict(result.Message(), result)
	}
	if err != nil {
		return fmt.Errorf("failed to reserve doctors: %w", err)
	}
	return nil
}

// syncBookings makes the stored bookings match surgery.
func (s *Service) syncBookings(ctx context.Context, surgery *model.Surgery) {
	if !surgery.Active {
		s.release(ctx, surgery.ID)
		return
	}
	if err := s.bookings.Prune(ctx, surgery.ID, surgery.DoctorIDs, s.dayKey(surgery.Date)); err != nil {
		s.logger.Error(err, "failed to prune bookings", "surgery_id", surgery.ID)
	}
}

// rebook restores the bookings of a surgery whose delete failed.
func (s *Service) rebook(ctx context.Context, surgery *model.Surgery) {
	if !surgery.Active {
		return
	}
	if err := s.bookings.Reserve(ctx, surgery.ID, surgery.DoctorIDs, s.dayKey(surgery.Date)); err != nil {
		s.logger.Error(err, "failed to restore bookings", "surgery_id", surgery.ID)
	}
}

func (s *Service) release(ctx context.Context, surgeryID string) {
	if err := s.bookings.Release(ctx, surgeryID); err != nil {
		s.logger.Error(err, "failed to release bookings", "surgery_id", surgeryID)
	}
}

func (s *Service) countConflict(source string) {
	if s.metrics != nil {
		s.metrics.SchedulingConflicts.WithLabelValues(source).Inc()
	}
}

func (s *Service) dayKey(t time.Time) string {
	return scheduling.DayKey(t, s.guard.Location())
}

func (s *Service) populate(ctx context.Context, surgery *model.Surgery) (*model.SurgeryDetail, error) {
	details, err := s.populateAll(ctx, []*model.Surgery{surgery})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// populateAll resolves patients and doctors. Dangling references are left
// empty rather than failing the read.
func (s *Service) populateAll(ctx context.Context, surgeries []*model.Surgery) ([]*model.SurgeryDetail, error) {
	var doctorIDs []string
	patients := make(map[string]*model.Patient)
	for _, sg := range surgeries {
		doctorIDs = append(doctorIDs, sg.DoctorIDs...)
		patients[sg.PatientID] = nil
	}

	doctors, err := s.doctors.FindByIDs(ctx, model.NormalizeIDs(doctorIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get doctors: %w", err)
	}
	byID := make(map[string]*model.Doctor, len(doctors))
	for _, d := range doctors {
		byID[d.ID] = d
	}

	for patientID := range patients {
		if patientID == "" {
			continue
		}
		p, err := s.patients.Get(ctx, patientID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to get patient: %w", err)
		}
		patients[patientID] = p
	}

	details := make([]*model.SurgeryDetail, 0, len(surgeries))
	for _, sg := range surgeries {
		detail := &model.SurgeryDetail{Surgery: sg, Patient: patients[sg.PatientID], Doctors: []*model.Doctor{}}
		for _, id := range sg.DoctorIDs {
			if d, ok := byID[id]; ok {
				detail.Doctors = append(detail.Doctors, d)
			}
		}
		details = append(details, detail)
	}
	return details, nil
}
