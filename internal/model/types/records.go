package types

import (
	"time"

	"gopkg.in/guregu/null.v3"
)

// Record category names. Entry categories are superlatives over the chart
// history; member categories are arg-max aggregates over contributions and
// attributions.
const (
	RecordHighestScore    = "highest_score"
	RecordMostPlays       = "most_plays"
	RecordLongestReign    = "longest_reign"
	RecordMostReEntries   = "most_re_entries"

	RecordTopContributor  = "top_contributor"
	RecordMostPlaysGiven  = "most_plays_contributed"
	RecordMostDebuts      = "most_debuts_helped"
	RecordBestAttendance  = "best_attendance"
	RecordMostSoleDriver  = "most_sole_driver"
	RecordBroadestTaste   = "broadest_taste"
)

// EntryRecord names the chart entry currently holding one entry-record
// category, together with the value that won it.
type EntryRecord struct {
	EntryType string      `json:"entryType"`
	EntryKey  string      `json:"entryKey"`
	Name      string      `json:"name"`
	Artist    null.String `json:"artist,omitempty" swaggertype:"string"`
	Value     float64     `json:"value"`
	WeekStart *time.Time  `json:"weekStart,omitempty"`
}

// MemberRecord names the member holding one member-record category.
type MemberRecord struct {
	MemberID int64   `json:"memberId"`
	Value    float64 `json:"value"`
}

// RecordsPayload is the full records document persisted per group.
type RecordsPayload struct {
	Entries map[string]*EntryRecord  `json:"entries"`
	Members map[string]*MemberRecord `json:"members"`
}

func NewRecordsPayload() *RecordsPayload {
	return &RecordsPayload{
		Entries: map[string]*EntryRecord{},
		Members: map[string]*MemberRecord{},
	}
}
