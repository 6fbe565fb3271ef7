package scheduling

import "github.com/jwalitptl/hospital-api/internal/model"

// MarkSelected projects doctors into options, flagging those in selected.
// The input records are copied, never modified.
func MarkSelected(doctors []*model.Doctor, selected []string) []model.DoctorOption {
	set := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		set[id] = struct{}{}
	}

	options := make([]model.DoctorOption, 0, len(doctors))
	for _, d := range doctors {
		_, ok := set[d.ID]
		options = append(options, model.DoctorOption{
			Doctor:   copyDoctor(d),
			Selected: ok,
			Checked:  ok,
		})
	}
	return options
}

// Options wraps doctors as unselected options.
func Options(doctors []*model.Doctor) []model.DoctorOption {
	return MarkSelected(doctors, nil)
}

func copyDoctor(d *model.Doctor) model.Doctor {
	c := *d
	c.Expertise = append([]string(nil), d.Expertise...)
	c.Gender = append([]string(nil), d.Gender...)
	return c
}
