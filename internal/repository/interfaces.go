package repository

import (
	"context"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
)

// All repository interfaces in one file
type (
	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id string) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id string) error
		List(ctx context.Context) ([]*model.Doctor, error)
		FindByIDs(ctx context.Context, ids []string) ([]*model.Doctor, error)
		Count(ctx context.Context) (int64, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id string) error
		List(ctx context.Context) ([]*model.Patient, error)
		Count(ctx context.Context) (int64, error)
	}

	SurgeryRepository interface {
		Create(ctx context.Context, surgery *model.Surgery) error
		Get(ctx context.Context, id string) (*model.Surgery, error)
		Update(ctx context.Context, surgery *model.Surgery) error
		Delete(ctx context.Context, id string) error
		List(ctx context.Context, filters SurgeryFilters) ([]*model.Surgery, error)
		// FindActiveOnDay returns the active surgeries dated inside window.
		FindActiveOnDay(ctx context.Context, window scheduling.Window) ([]*model.Surgery, error)
		FindActive(ctx context.Context) ([]*model.Surgery, error)
		ListByDoctor(ctx context.Context, doctorID string) ([]*model.Surgery, error)
		ListByPatient(ctx context.Context, patientID string) ([]*model.Surgery, error)
		Count(ctx context.Context, filters SurgeryFilters) (int64, error)
	}

	// BookingRepository holds one record per doctor per calendar day for
	// active surgeries, so the store rejects a double booking on write.
	BookingRepository interface {
		// Reserve books every doctor on day for surgeryID. Either all bookings
		// are written or none are; taken doctors are reported in a *BookingTakenError.
		// A booking whose holding surgery no longer backs it is reclaimed once
		// it is older than StaleBookingAge.
		Reserve(ctx context.Context, surgeryID string, doctorIDs []string, day string) error
		// Prune drops the surgery's bookings that are not for doctorIDs on day.
		Prune(ctx context.Context, surgeryID string, doctorIDs []string, day string) error
		Release(ctx context.Context, surgeryID string) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ProcessPending locks up to limit pending events, hands each to fn and
		// records the outcome in the same transaction.
		ProcessPending(ctx context.Context, limit, maxRetries int, fn func(*model.OutboxEvent) error) (int, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)

// SurgeryFilters is the store level form of a surgery query.
type SurgeryFilters struct {
	Window    scheduling.Window
	Active    *bool
	DoctorIDs []string
	PatientID string
}
