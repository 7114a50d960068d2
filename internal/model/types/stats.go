package types

import (
	"time"

	"gopkg.in/guregu/null.v3"
)

// StatsRow is one line of a member's weekly listening history as returned by
// the scrobbling provider: one entry with its playcount, ordered by the
// member's own rank for the week (index 0 = the member's top entry).
type StatsRow struct {
	EntryKey  string      `json:"entryKey"`
	Name      string      `json:"name"`
	Artist    null.String `json:"artist,omitempty" swaggertype:"string"`
	Playcount int         `json:"playcount"`
}

// RawWeeklyStats is the full weekly history of one member for one entry type.
type RawWeeklyStats struct {
	MemberID  int64      `json:"memberId"`
	WeekStart time.Time  `json:"weekStart"`
	EntryType string     `json:"entryType"`
	Rows      []StatsRow `json:"rows"`
}

// TotalPlays sums playcounts over every row, i.e. the member's full listening
// volume for the week within this entry type.
func (s *RawWeeklyStats) TotalPlays() int {
	total := 0
	for _, row := range s.Rows {
		total += row.Playcount
	}
	return total
}
