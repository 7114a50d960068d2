package chartweek

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartBoundsAndIdempotence(t *testing.T) {
	nows := []time.Time{
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 26, 2, 30, 0, 0, time.UTC),  // EU DST switch date
		time.Date(2023, 11, 5, 9, 0, 0, 0, time.UTC),   // US DST switch date
		time.Date(2023, 6, 14, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), // leap day
		time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC),
	}

	for trackingDay := 0; trackingDay < 7; trackingDay++ {
		for _, now := range nows {
			start := Start(now, trackingDay)

			assert.False(t, start.After(now), "start must not be after now (day=%d now=%s)", trackingDay, now)
			assert.True(t, now.Before(start.AddDate(0, 0, 7)), "now must fall within the week (day=%d now=%s)", trackingDay, now)
			assert.Equal(t, time.Weekday(trackingDay), start.Weekday())
			assert.Equal(t, 0, start.Hour())
			assert.Equal(t, time.UTC, start.Location())

			assert.Equal(t, start, Start(start, trackingDay), "Start must be idempotent")
		}
	}
}

func TestStartHonorsNonUTCInput(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*3600)
	// local Monday morning that is still Sunday in UTC
	local := time.Date(2023, 6, 12, 9, 0, 0, 0, loc)

	start := Start(local, 1) // Monday tracking
	assert.Equal(t, time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), start)
}

func TestIsClosed(t *testing.T) {
	start := time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)

	assert.False(t, IsClosed(start, start.AddDate(0, 0, 7).Add(-time.Second)))
	assert.True(t, IsClosed(start, start.AddDate(0, 0, 7)))
	assert.True(t, IsClosed(start, start.AddDate(0, 0, 8)))
}

func TestClosedStartsBetween(t *testing.T) {
	now := time.Date(2023, 6, 21, 12, 0, 0, 0, time.UTC) // a Wednesday

	t.Run("ContinuesFromLastChartedWeek", func(t *testing.T) {
		lastCharted := time.Date(2023, 5, 29, 0, 0, 0, 0, time.UTC) // Monday
		starts := ClosedStartsBetween(lastCharted, now, 1, 10)

		assert.Equal(t, []time.Time{
			time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC),
		}, starts)
	})

	t.Run("NothingToDoWhenFullyCharted", func(t *testing.T) {
		lastCharted := time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC)
		starts := ClosedStartsBetween(lastCharted, now, 1, 10)

		assert.Empty(t, starts)
	})

	t.Run("FirstRunCoversRetentionWindow", func(t *testing.T) {
		starts := ClosedStartsBetween(time.Time{}, now, 1, 10)

		assert.Len(t, starts, 10)
		assert.Equal(t, time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC), starts[0])
		assert.Equal(t, time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC), starts[len(starts)-1])
		for i := 1; i < len(starts); i++ {
			assert.Equal(t, starts[i-1].AddDate(0, 0, 7), starts[i], "weeks must be consecutive")
		}
	})

	t.Run("CurrentOpenWeekIsExcluded", func(t *testing.T) {
		starts := ClosedStartsBetween(time.Time{}, now, 1, 2)
		for _, s := range starts {
			assert.True(t, IsClosed(s, now))
		}
	})
}
