package repository

import (
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
)

// StaleBookingAge is how long a booking is left alone before its holder is
// checked. Create and Update reserve before writing the surgery, so a
// younger booking may belong to a write that is still in flight.
const StaleBookingAge = time.Minute

// BacksBooking reports whether s still needs doctorID on day.
func BacksBooking(s *model.Surgery, doctorID, day string, loc *time.Location) bool {
	return s != nil && s.Active && s.HasDoctor(doctorID) && scheduling.DayKey(s.Date, loc) == day
}

// Reclaimable reports whether a booking made at bookedAt may be taken from
// holder, which is nil when the holding surgery no longer exists.
func Reclaimable(holder *model.Surgery, doctorID, day string, bookedAt, now time.Time, loc *time.Location) bool {
	if now.Sub(bookedAt) < StaleBookingAge {
		return false
	}
	return !BacksBooking(holder, doctorID, day, loc)
}
