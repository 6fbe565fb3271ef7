package model

import (
	"time"
)

// Base contains common fields for all records kept in the document store
type Base struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Person holds the naming fields shared by doctors and patients
type Person struct {
	FirstName   string     `json:"first_name" bson:"first_name"`
	FamilyName  string     `json:"family_name" bson:"family_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" bson:"date_of_birth,omitempty"`
}

// Name renders "Family, First", the display form used in lists and messages.
func (p Person) Name() string {
	switch {
	case p.FamilyName == "":
		return p.FirstName
	case p.FirstName == "":
		return p.FamilyName
	}
	return p.FamilyName + ", " + p.FirstName
}

// DisplayDate formats an optional date for templates and mails.
func DisplayDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// Counts are the home page totals.
type Counts struct {
	Surgeries       int64 `json:"surgery_count"`
	ActiveSurgeries int64 `json:"surgery_available_count"`
	Doctors         int64 `json:"doctor_count"`
	Patients        int64 `json:"patient_count"`
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}
