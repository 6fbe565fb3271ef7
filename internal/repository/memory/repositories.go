package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
)

type doctorRepository struct{ *Store }

func NewDoctorRepository(s *Store) repository.DoctorRepository { return &doctorRepository{s} }

func (r *doctorRepository) Create(_ context.Context, d *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&d.Base, true)
	r.doctors[d.ID] = *cloneDoctor(*d)
	return nil
}

func (r *doctorRepository) Get(_ context.Context, id string) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneDoctor(d), nil
}

func (r *doctorRepository) Update(_ context.Context, d *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[d.ID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&d.Base, false)
	r.doctors[d.ID] = *cloneDoctor(*d)
	return nil
}

func (r *doctorRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.doctors, id)
	return nil
}

func (r *doctorRepository) List(_ context.Context) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		out = append(out, cloneDoctor(d))
	}
	sortByName(out)
	return out, nil
}

func (r *doctorRepository) FindByIDs(_ context.Context, ids []string) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Doctor, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.doctors[id]; ok {
			out = append(out, cloneDoctor(d))
		}
	}
	sortByName(out)
	return out, nil
}

func (r *doctorRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.doctors)), nil
}

type patientRepository struct{ *Store }

func NewPatientRepository(s *Store) repository.PatientRepository { return &patientRepository{s} }

func (r *patientRepository) Create(_ context.Context, p *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&p.Base, true)
	r.patients[p.ID] = *p
	return nil
}

func (r *patientRepository) Get(_ context.Context, id string) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePatient(p), nil
}

func (r *patientRepository) Update(_ context.Context, p *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&p.Base, false)
	r.patients[p.ID] = *p
	return nil
}

func (r *patientRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.patients, id)
	return nil
}

func (r *patientRepository) List(_ context.Context) ([]*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, clonePatient(p))
	}
	sortByName(out)
	return out, nil
}

func (r *patientRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.patients)), nil
}

type surgeryRepository struct{ *Store }

func NewSurgeryRepository(s *Store) repository.SurgeryRepository { return &surgeryRepository{s} }

func (r *surgeryRepository) Create(_ context.Context, s *model.Surgery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&s.Base, true)
	r.surgeries[s.ID] = *cloneSurgery(*s)
	return nil
}

func (r *surgeryRepository) Get(_ context.Context, id string) (*model.Surgery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surgeries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSurgery(s), nil
}

func (r *surgeryRepository) Update(_ context.Context, s *model.Surgery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surgeries[s.ID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&s.Base, false)
	r.surgeries[s.ID] = *cloneSurgery(*s)
	return nil
}

func (r *surgeryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surgeries[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.surgeries, id)
	return nil
}

func (r *surgeryRepository) List(_ context.Context, f repository.SurgeryFilters) ([]*model.Surgery, error) {
	return r.filter(f), nil
}

func (r *surgeryRepository) FindActiveOnDay(_ context.Context, window scheduling.Window) ([]*model.Surgery, error) {
	active := true
	return r.filter(repository.SurgeryFilters{Window: window, Active: &active}), nil
}

func (r *surgeryRepository) FindActive(_ context.Context) ([]*model.Surgery, error) {
	active := true
	return r.filter(repository.SurgeryFilters{Active: &active}), nil
}

func (r *surgeryRepository) ListByDoctor(_ context.Context, doctorID string) ([]*model.Surgery, error) {
	return r.filter(repository.SurgeryFilters{DoctorIDs: []string{doctorID}}), nil
}

func (r *surgeryRepository) ListByPatient(_ context.Context, patientID string) ([]*model.Surgery, error) {
	return r.filter(repository.SurgeryFilters{PatientID: patientID}), nil
}

func (r *surgeryRepository) Count(_ context.Context, f repository.SurgeryFilters) (int64, error) {
	return int64(len(r.filter(f))), nil
}

func (r *surgeryRepository) filter(f repository.SurgeryFilters) []*model.Surgery {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bounded := !f.Window.Start.IsZero() && !f.Window.IsUnbounded()
	out := []*model.Surgery{}
	for _, s := range r.surgeries {
		if bounded && !f.Window.Contains(s.Date) {
			continue
		}
		if f.Active != nil && s.Active != *f.Active {
			continue
		}
		if f.PatientID != "" && s.PatientID != f.PatientID {
			continue
		}
		if len(f.DoctorIDs) > 0 && !anyDoctor(&s, f.DoctorIDs) {
			continue
		}
		out = append(out, cloneSurgery(s))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func anyDoctor(s *model.Surgery, ids []string) bool {
	for _, id := range ids {
		if s.HasDoctor(id) {
			return true
		}
	}
	return false
}

type bookingRepository struct {
	*Store
	loc *time.Location
}

// NewBookingRepository keeps bookings keyed by calendar days in loc.
func NewBookingRepository(s *Store, loc *time.Location) repository.BookingRepository {
	return &bookingRepository{Store: s, loc: loc}
}

func bookingKey(doctorID, day string) string {
	return doctorID + ":" + day
}

func (r *bookingRepository) Reserve(_ context.Context, surgeryID string, doctorIDs []string, day string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var taken []string
	for _, id := range doctorIDs {
		held, ok := r.bookings[bookingKey(id, day)]
		if ok && held.surgeryID != surgeryID && !r.reclaimable(held, id, day, now) {
			taken = append(taken, id)
		}
	}
	if len(taken) > 0 {
		return &repository.BookingTakenError{DoctorIDs: taken, Day: day}
	}
	for _, id := range doctorIDs {
		key := bookingKey(id, day)
		if held, ok := r.bookings[key]; ok && held.surgeryID == surgeryID {
			continue
		}
		r.bookings[key] = heldBooking{surgeryID: surgeryID, bookedAt: now}
	}
	return nil
}

// reclaimable must be called with the lock held.
func (r *bookingRepository) reclaimable(held heldBooking, doctorID, day string, now time.Time) bool {
	var holder *model.Surgery
	if s, ok := r.surgeries[held.surgeryID]; ok {
		holder = &s
	}
	return repository.Reclaimable(holder, doctorID, day, held.bookedAt, now, r.loc)
}

func (r *bookingRepository) Prune(_ context.Context, surgeryID string, doctorIDs []string, day string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keep := make(map[string]struct{}, len(doctorIDs))
	for _, id := range doctorIDs {
		keep[bookingKey(id, day)] = struct{}{}
	}
	for key, held := range r.bookings {
		if _, ok := keep[key]; held.surgeryID == surgeryID && !ok {
			delete(r.bookings, key)
		}
	}
	return nil
}

func (r *bookingRepository) Release(_ context.Context, surgeryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, held := range r.bookings {
		if held.surgeryID == surgeryID {
			delete(r.bookings, key)
		}
	}
	return nil
}
