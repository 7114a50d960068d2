package model

import (
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"
)

// MemberEntryContribution is one member's scored contribution to one entry
// for one week, under the chart mode that was active when the week was
// generated. Written once by the scorer during a generation run; consumed,
// never mutated, by the chart aggregator and the attribution scan.
type MemberEntryContribution struct {
	bun.BaseModel `bun:"member_entry_contributions,alias:mec"`

	ContributionID int64     `bun:",pk,autoincrement" json:"id"`
	GroupID        int64     `json:"groupId"`
	MemberID       int64     `json:"memberId"`
	WeekStart      time.Time `json:"weekStart"`
	EntryType      string    `json:"entryType"`
	EntryKey       string    `json:"entryKey"`

	Name   string      `json:"name"`
	Artist null.String `json:"artist,omitempty" swaggertype:"string"`

	Value     float64 `json:"value"`
	Playcount int     `json:"playcount"`
}

// MemberEntrySum is the aggregate scan result backing major-driver
// recomputation: one member's total contributed value to one entry.
type MemberEntrySum struct {
	MemberID int64   `bun:"member_id"`
	Total    float64 `bun:"total"`
}
