package catalog

import (
	"context"
	"fmt"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type Service struct {
	doctors   repository.DoctorRepository
	patients  repository.PatientRepository
	surgeries repository.SurgeryRepository
}

func NewService(doctors repository.DoctorRepository, patients repository.PatientRepository, surgeries repository.SurgeryRepository) *Service {
	return &Service{doctors: doctors, patients: patients, surgeries: surgeries}
}

// Counts returns the record totals shown on the home page.
func (s *Service) Counts(ctx context.Context) (*model.Counts, error) {
	surgeries, err := s.surgeries.Count(ctx, repository.SurgeryFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to count surgeries: %w", err)
	}

	active := true
	activeSurgeries, err := s.surgeries.Count(ctx, repository.SurgeryFilters{Active: &active})
	if err != nil {
		return nil, fmt.Errorf("failed to count active surgeries: %w", err)
	}

	doctors, err := s.doctors.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count doctors: %w", err)
	}

	patients, err := s.patients.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}

	return &model.Counts{
		Surgeries:       surgeries,
		ActiveSurgeries: activeSurgeries,
		Doctors:         doctors,
		Patients:        patients,
	}, nil
}
