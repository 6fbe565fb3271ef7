package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Surgery struct {
	Base      `bson:",inline"`
	Title     string    `json:"title" bson:"title"`
	PatientID string    `json:"patient_id" bson:"patient_id"`
	DoctorIDs []string  `json:"doctor_ids" bson:"doctor_ids"`
	Date      time.Time `json:"date" bson:"date"`
	Summary   string    `json:"summary" bson:"summary"`
	Active    bool      `json:"active" bson:"active"`
}

// HasDoctor reports whether id is among the surgery's doctors.
func (s *Surgery) HasDoctor(id string) bool {
	for _, d := range s.DoctorIDs {
		if d == id {
			return true
		}
	}
	return false
}

// SurgeryDetail is a surgery with its references resolved.
type SurgeryDetail struct {
	*Surgery
	Patient *Patient  `json:"patient,omitempty"`
	Doctors []*Doctor `json:"doctors"`
}

// SurgeryRequest is the submission shape for create and update. Doctor
// accepts either a single identifier or a list.
type SurgeryRequest struct {
	Title   string `json:"title" form:"title" validate:"required,max=200"`
	Patient string `json:"patient" form:"patient" validate:"required"`
	Doctor  IDList `json:"doctor" form:"doctor" validate:"required,min=1"`
	Date    string `json:"date" form:"date" validate:"required,calendarday"`
	Summary string `json:"summary" form:"summary" validate:"required"`
	Active  bool   `json:"active" form:"active"`
}

// SurgeryFilters narrows a surgery listing. A zero Date means every day.
type SurgeryFilters struct {
	Date      string   `form:"date"`
	Active    *bool    `form:"active"`
	DoctorIDs []string `form:"doctor"`
	PatientID string   `form:"patient"`
}

// SurgeryForm is what a create or update form needs to render.
type SurgeryForm struct {
	Surgery  *SurgeryDetail `json:"surgery,omitempty"`
	Patients []*Patient     `json:"patients"`
	Doctors  []DoctorOption `json:"doctors"`
}

// IDList is a set of identifiers that decodes from either a JSON string
// or a JSON array of strings. Blank and repeated entries are dropped.
type IDList []string

func (l *IDList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = NormalizeIDs([]string{single})
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		if string(data) == "null" {
			*l = nil
			return nil
		}
		return fmt.Errorf("doctor must be a string or an array of strings")
	}
	*l = NormalizeIDs(many)
	return nil
}

// NormalizeIDs trims, drops blanks and de-duplicates while keeping order.
func NormalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
