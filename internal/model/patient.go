package model

import "time"

type Patient struct {
	Base        `bson:",inline"`
	Person      `bson:",inline"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty" bson:"date_of_death,omitempty"`
	Diagnosis   string     `json:"diagnosis" bson:"diagnosis"`
	Treatment   string     `json:"treatment,omitempty" bson:"treatment,omitempty"`
}

// Lifespan renders "birth - death" with whichever ends are known.
func (p *Patient) Lifespan() string {
	birth := DisplayDate(p.DateOfBirth)
	death := DisplayDate(p.DateOfDeath)
	if birth == "" && death == "" {
		return ""
	}
	return birth + " - " + death
}

type CreatePatientRequest struct {
	FirstName   string `json:"first_name" form:"first_name" validate:"required,max=100"`
	FamilyName  string `json:"family_name" form:"family_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" form:"date_of_birth" validate:"omitempty,calendarday"`
	DateOfDeath string `json:"date_of_death" form:"date_of_death" validate:"omitempty,calendarday"`
	Diagnosis   string `json:"diagnosis" form:"diagnosis" validate:"required"`
	Treatment   string `json:"treatment" form:"treatment"`
}

type UpdatePatientRequest = CreatePatientRequest

// PatientDetail is a patient together with their surgeries.
type PatientDetail struct {
	Patient   *Patient   `json:"patient"`
	Surgeries []*Surgery `json:"surgeries"`
}
