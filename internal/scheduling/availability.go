package scheduling

import "github.com/jwalitptl/hospital-api/internal/model"

// AvailableDoctors returns, in input order, the doctors that are not assigned
// to any active surgery. Every doctor of an active surgery counts as busy.
func AvailableDoctors(all []*model.Doctor, surgeries []*model.Surgery) []*model.Doctor {
	busy := make(map[string]struct{})
	for _, s := range surgeries {
		if s == nil || !s.Active {
			continue
		}
		for _, id := range s.DoctorIDs {
			busy[id] = struct{}{}
		}
	}

	available := make([]*model.Doctor, 0, len(all))
	for _, d := range all {
		if _, ok := busy[d.ID]; ok {
			continue
		}
		available = append(available, d)
	}
	return available
}
