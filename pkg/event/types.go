package event

import (
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
)

// Event types double as broker channel names.
const (
	DoctorCreated  = "doctor.created"
	DoctorUpdated  = "doctor.updated"
	DoctorDeleted  = "doctor.deleted"
	PatientCreated = "patient.created"
	PatientUpdated = "patient.updated"
	PatientDeleted = "patient.deleted"
	SurgeryCreated = "surgery.created"
	SurgeryUpdated = "surgery.updated"
	SurgeryDeleted = "surgery.deleted"
)

// SurgeryPayload is the body of surgery events.
type SurgeryPayload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	PatientID string    `json:"patient_id"`
	DoctorIDs []string  `json:"doctor_ids"`
	Date      time.Time `json:"date"`
	Day       string    `json:"day"`
	Active    bool      `json:"active"`
}

func NewSurgeryPayload(s *model.Surgery, day string) SurgeryPayload {
	return SurgeryPayload{
		ID:        s.ID,
		Title:     s.Title,
		PatientID: s.PatientID,
		DoctorIDs: s.DoctorIDs,
		Date:      s.Date,
		Day:       day,
		Active:    s.Active,
	}
}

// RecordPayload is the body of doctor and patient events.
type RecordPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
