package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
)

func TestBookingReserveIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	bookings := NewBookingRepository(NewStore(), time.UTC)

	require.NoError(t, bookings.Reserve(ctx, "s1", []string{"d1"}, "2024-03-01"))
	// Re-reserving for the holder is a no-op.
	require.NoError(t, bookings.Reserve(ctx, "s1", []string{"d1"}, "2024-03-01"))

	err := bookings.Reserve(ctx, "s2", []string{"d2", "d1"}, "2024-03-01")
	var taken *repository.BookingTakenError
	require.True(t, errors.As(err, &taken))
	assert.Equal(t, []string{"d1"}, taken.DoctorIDs)
	assert.ErrorIs(t, err, repository.ErrBookingTaken)

	// d2 was not left behind by the failed reservation.
	require.NoError(t, bookings.Reserve(ctx, "s3", []string{"d2"}, "2024-03-01"))

	require.NoError(t, bookings.Release(ctx, "s1"))
	require.NoError(t, bookings.Reserve(ctx, "s2", []string{"d1"}, "2024-03-01"))
}

func TestBookingPruneKeepsCurrentSet(t *testing.T) {
	ctx := context.Background()
	bookings := NewBookingRepository(NewStore(), time.UTC)

	require.NoError(t, bookings.Reserve(ctx, "s1", []string{"d1", "d2"}, "2024-03-01"))
	require.NoError(t, bookings.Prune(ctx, "s1", []string{"d1"}, "2024-03-01"))

	assert.NoError(t, bookings.Reserve(ctx, "s2", []string{"d2"}, "2024-03-01"))
	assert.Error(t, bookings.Reserve(ctx, "s2", []string{"d1"}, "2024-03-01"))
}

func TestSurgeryFiltersAndCopies(t *testing.T) {
	ctx := context.Background()
	surgeries := NewSurgeryRepository(NewStore())
	march1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	s1 := &model.Surgery{Title: "Bypass", PatientID: "p1", DoctorIDs: []string{"d1"}, Date: march1, Active: true}
	s2 := &model.Surgery{Title: "Biopsy", PatientID: "p2", DoctorIDs: []string{"d2"}, Date: march1.AddDate(0, 0, 1), Active: true}
	s3 := &model.Surgery{Title: "Cast", PatientID: "p1", DoctorIDs: []string{"d1", "d3"}, Date: march1, Active: false}
	for _, s := range []*model.Surgery{s1, s2, s3} {
		require.NoError(t, surgeries.Create(ctx, s))
	}
	assert.NotEmpty(t, s1.ID)

	onDay, err := surgeries.FindActiveOnDay(ctx, scheduling.DayWindow(march1, time.UTC))
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	assert.Equal(t, s1.ID, onDay[0].ID)

	byDoctor, err := surgeries.ListByDoctor(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, byDoctor, 2)

	n, err := surgeries.Count(ctx, repository.SurgeryFilters{Window: scheduling.Unbounded(), PatientID: "p1"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	onDay[0].DoctorIDs[0] = "changed"
	again, err := surgeries.Get(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, again.DoctorIDs)

	_, err = surgeries.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookingReclaimsStaleHolders(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	store := NewStore(WithClock(func() time.Time { return now }))
	surgeries := NewSurgeryRepository(store)
	bookings := NewBookingRepository(store, time.UTC)
	march10 := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	live := &model.Surgery{Title: "Bypass", PatientID: "p1", DoctorIDs: []string{"d1"}, Date: march10, Active: true}
	cancelled := &model.Surgery{Title: "Biopsy", PatientID: "p1", DoctorIDs: []string{"d2"}, Date: march10, Active: true}
	moved := &model.Surgery{Title: "Cast", PatientID: "p1", DoctorIDs: []string{"d3"}, Date: march10, Active: true}
	for _, s := range []*model.Surgery{live, cancelled, moved} {
		require.NoError(t, surgeries.Create(ctx, s))
		require.NoError(t, bookings.Reserve(ctx, s.ID, s.DoctorIDs, "2024-03-10"))
	}
	// An orphan left behind by a release that never happened.
	require.NoError(t, bookings.Reserve(ctx, "deleted", []string{"d4"}, "2024-03-10"))

	cancelled.Active = false
	require.NoError(t, surgeries.Update(ctx, cancelled))
	moved.Date = march10.AddDate(0, 0, 1)
	require.NoError(t, surgeries.Update(ctx, moved))

	// Young bookings are left alone even when their holder looks stale.
	err := bookings.Reserve(ctx, "new", []string{"d4"}, "2024-03-10")
	assert.ErrorIs(t, err, repository.ErrBookingTaken)

	now = now.Add(repository.StaleBookingAge)

	err = bookings.Reserve(ctx, "new", []string{"d1", "d2", "d3", "d4"}, "2024-03-10")
	var taken *repository.BookingTakenError
	require.True(t, errors.As(err, &taken))
	assert.Equal(t, []string{"d1"}, taken.DoctorIDs)

	require.NoError(t, bookings.Reserve(ctx, "new", []string{"d2", "d3", "d4"}, "2024-03-10"))
	// The reclaimed bookings now belong to "new".
	assert.ErrorIs(t, bookings.Reserve(ctx, cancelled.ID, []string{"d2"}, "2024-03-10"), repository.ErrBookingTaken)
}
