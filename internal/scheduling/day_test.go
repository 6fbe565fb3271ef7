package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindow(t *testing.T) {
	ts := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	w := DayWindow(ts, time.UTC)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), w.End)
	assert.True(t, w.Contains(w.Start))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.IsUnbounded())

	assert.True(t, DayWindow(time.Time{}, time.UTC).IsUnbounded())
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-02-29", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", DayKey(d, time.UTC))

	empty, err := ParseDay("", time.UTC)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	_, err = ParseDay("03/01/2024", time.UTC)
	assert.Error(t, err)
}
