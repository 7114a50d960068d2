// Package chartweek is the pure date math behind weekly chart boundaries.
// All computation happens in UTC so DST transitions in members' local zones
// can never shift a week boundary.
package chartweek

import (
	"time"
)

// KeyFormat renders a week start wherever one becomes part of an identifier,
// such as cache keys and archive file names.
const KeyFormat = "2006-01-02"

// Start returns the most recent instant not after t whose weekday equals
// trackingDay (0 = Sunday .. 6 = Saturday), truncated to midnight UTC.
func Start(t time.Time, trackingDay int) time.Time {
	u := t.UTC()
	back := (int(u.Weekday()) - trackingDay + 7) % 7
	u = u.AddDate(0, 0, -back)
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// End returns the exclusive end of the week beginning at start.
func End(start time.Time) time.Time {
	return start.AddDate(0, 0, 7)
}

// IsClosed reports whether the week beginning at start has fully elapsed
// at instant now, making it eligible for chart generation.
func IsClosed(start, now time.Time) bool {
	return !End(start).After(now.UTC())
}

// ClosedStartsBetween returns the ascending list of closed week starts that
// come strictly after the week beginning at lastCharted and are closed as of
// now. When lastCharted is the zero time the walk begins horizonWeeks weeks
// before the current week, i.e. the whole retention window.
func ClosedStartsBetween(lastCharted, now time.Time, trackingDay, horizonWeeks int) []time.Time {
	var cursor time.Time
	if lastCharted.IsZero() {
		cursor = Start(now, trackingDay).AddDate(0, 0, -7*horizonWeeks)
	} else {
		cursor = End(Start(lastCharted, trackingDay))
	}

	starts := make([]time.Time, 0)
	for IsClosed(cursor, now) {
		starts = append(starts, cursor)
		cursor = End(cursor)
	}
	return starts
}
