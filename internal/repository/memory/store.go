// Package memory keeps doctors, patients, surgeries and bookings in process
// memory. It backs the "memory" storage driver and the service tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
)

type Store struct {
	mu        sync.RWMutex
	doctors   map[string]model.Doctor
	patients  map[string]model.Patient
	surgeries map[string]model.Surgery
	bookings  map[string]heldBooking // doctorID:day
	now       func() time.Time
}

type heldBooking struct {
	surgeryID string
	bookedAt  time.Time
}

type StoreOption func(*Store)

// WithClock replaces the clock used to age bookings.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		doctors:   make(map[string]model.Doctor),
		patients:  make(map[string]model.Patient),
		surgeries: make(map[string]model.Surgery),
		bookings:  make(map[string]heldBooking),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func stamp(b *model.Base, create bool) {
	now := time.Now().UTC()
	if create {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func cloneDoctor(d model.Doctor) *model.Doctor {
	return d.Clone()
}

func clonePatient(p model.Patient) *model.Patient {
	return &p
}

func cloneSurgery(s model.Surgery) *model.Surgery {
	s.DoctorIDs = append([]string(nil), s.DoctorIDs...)
	return &s
}

func sortByName[T interface{ Name() string }](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Name() < items[j].Name()
	})
}
