// Package scheduling holds the rules that keep a doctor out of two active
// surgeries on the same calendar day.
package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
)

// Candidate is a surgery submission that has not been persisted yet.
type Candidate struct {
	ID        string
	DoctorIDs []string
	Date      time.Time
	Active    bool
}

// ConflictingDoctor is a doctor that is already booked on the candidate's day.
type ConflictingDoctor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SurgeryID string `json:"surgery_id,omitempty"`
}

// Result is the outcome of a conflict check. The zero value means no conflict.
type Result struct {
	Date    time.Time           `json:"-"`
	Doctors []ConflictingDoctor `json:"doctors,omitempty"`
	Text    string              `json:"message,omitempty"`
}

// HasConflict reports whether any doctor is double booked.
func (r Result) HasConflict() bool {
	return len(r.Doctors) > 0
}

// Message is the operator facing description of the conflict.
func (r Result) Message() string {
	return r.Text
}

// Guard checks candidates against the surgeries already stored.
type Guard struct {
	loc *time.Location
}

// NewGuard returns a guard that compares calendar days in loc.
func NewGuard(loc *time.Location) *Guard {
	if loc == nil {
		loc = time.UTC
	}
	return &Guard{loc: loc}
}

// Location is the zone calendar days are computed in.
func (g *Guard) Location() *time.Location {
	return g.loc
}

// Window is the range of existing surgeries relevant to c.
func (g *Guard) Window(c Candidate) Window {
	return DayWindow(c.Date, g.loc)
}

// CheckConflict decides whether c can be scheduled given existing. names maps
// doctor ids to display names; ids missing from it are reported verbatim.
func (g *Guard) CheckConflict(c Candidate, existing []*model.Surgery, names map[string]string) Result {
	if !c.Active {
		return Result{}
	}

	window := g.Window(c)
	wanted := make(map[string]struct{}, len(c.DoctorIDs))
	for _, id := range c.DoctorIDs {
		wanted[id] = struct{}{}
	}

	var conflicts []ConflictingDoctor
	seen := make(map[string]struct{})
	for _, s := range existing {
		if s == nil || !s.Active {
			continue
		}
		if c.ID != "" && s.ID == c.ID {
			continue
		}
		if !window.Contains(s.Date) {
			continue
		}
		for _, id := range s.DoctorIDs {
			if _, ok := wanted[id]; !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			name, ok := names[id]
			if !ok || name == "" {
				name = id
			}
			conflicts = append(conflicts, ConflictingDoctor{ID: id, Name: name, SurgeryID: s.ID})
		}
	}

	return g.Conflict(conflicts, c.Date)
}

// Conflict builds the result reporting doctors as booked on date. An empty
// list yields no conflict.
func (g *Guard) Conflict(doctors []ConflictingDoctor, date time.Time) Result {
	if len(doctors) == 0 {
		return Result{}
	}
	return Result{
		Date:    date,
		Doctors: doctors,
		Text:    conflictMessage(doctors, date, g.loc),
	}
}

func conflictMessage(doctors []ConflictingDoctor, date time.Time, loc *time.Location) string {
	day := "any date"
	if !date.IsZero() {
		day = DayKey(date, loc)
	}
	if len(doctors) == 1 {
		return fmt.Sprintf("This doctor (%s) has active surgery on %s", doctors[0].Name, day)
	}
	names := make([]string, len(doctors))
	for i, d := range doctors {
		names[i] = d.Name
	}
	return fmt.Sprintf("These doctors (%s) have active surgeries on %s", strings.Join(names, "; "), day)
}
