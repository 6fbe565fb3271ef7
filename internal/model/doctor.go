package model

import (
	"slices"
	"time"
)

type Doctor struct {
	Base      `bson:",inline"`
	Person    `bson:",inline"`
	Expertise []string `json:"expertise" bson:"expertise"`
	Gender    []string `json:"gender" bson:"gender"`
	ExtraInfo string   `json:"extra_info,omitempty" bson:"extra_info,omitempty"`
	Email     string   `json:"email,omitempty" bson:"email,omitempty"`
}

// Clone returns a copy of d that shares no slices or pointers with it.
func (d *Doctor) Clone() *Doctor {
	c := *d
	c.Expertise = slices.Clone(d.Expertise)
	c.Gender = slices.Clone(d.Gender)
	if d.DateOfBirth != nil {
		dob := *d.DateOfBirth
		c.DateOfBirth = &dob
	}
	return &c
}

type CreateDoctorRequest struct {
	FirstName   string   `json:"first_name" form:"first_name" validate:"required,max=100"`
	FamilyName  string   `json:"family_name" form:"family_name" validate:"required,max=100"`
	DateOfBirth string   `json:"date_of_birth" form:"date_of_birth" validate:"omitempty,calendarday"`
	Expertise   []string `json:"expertise" form:"expertise"`
	Gender      []string `json:"gender" form:"gender"`
	ExtraInfo   string   `json:"extra_info" form:"extra_info"`
	Email       string   `json:"email" form:"email" validate:"omitempty,email"`
}

type UpdateDoctorRequest = CreateDoctorRequest

// Apply copies the request onto d; dob has already been parsed by the caller.
func (r *CreateDoctorRequest) Apply(d *Doctor, dob *time.Time) {
	d.FirstName = r.FirstName
	d.FamilyName = r.FamilyName
	d.DateOfBirth = dob
	d.Expertise = nonNil(r.Expertise)
	d.Gender = nonNil(r.Gender)
	d.ExtraInfo = r.ExtraInfo
	d.Email = r.Email
}

// DoctorDetail is a doctor together with the surgeries that reference them.
type DoctorDetail struct {
	Doctor    *Doctor    `json:"doctor"`
	Surgeries []*Surgery `json:"surgeries"`
}

// DoctorOption is a doctor annotated for a selection control. It never
// aliases fields back into the store's record.
type DoctorOption struct {
	Doctor
	Selected bool `json:"selected"`
	Checked  bool `json:"checked"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
