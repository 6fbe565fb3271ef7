package repository

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrBookingTaken = errors.New("doctor already booked on that day")
)

// BookingTakenError names the doctors whose day was already booked.
type BookingTakenError struct {
	DoctorIDs []string
	Day       string
}

func (e *BookingTakenError) Error() string {
	return ErrBookingTaken.Error() + ": " + strings.Join(e.DoctorIDs, ", ") + " on " + e.Day
}

func (e *BookingTakenError) Unwrap() error {
	return ErrBookingTaken
}
