package model

import (
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"
)

// ChartEntry is one ranked slot of a group's weekly chart. For a fixed
// (group, week, entry type) positions form a dense 1..chartSize sequence with
// no duplicate EntryKey. Rows are written once by the aggregator and never
// mutated; the following week's PositionChange reads but does not touch them.
type ChartEntry struct {
	bun.BaseModel `bun:"chart_entries,alias:ce"`

	EntryID   int64     `bun:",pk,autoincrement" json:"id"`
	GroupID   int64     `json:"groupId"`
	WeekStart time.Time `json:"weekStart"`
	EntryType string    `json:"entryType"`
	Position  int       `json:"position"`

	EntryKey string      `json:"entryKey"`
	Name     string      `json:"name"`
	Artist   null.String `json:"artist,omitempty" swaggertype:"string"`

	// Playcount is summed across contributing members. Score is the summed
	// contribution value and is null when the group charted in plays_only mode.
	Playcount int        `json:"playcount"`
	Score     null.Float `json:"score,omitempty" swaggertype:"number"`

	// PositionChange is negative when the entry improved. Null together with
	// Lifecycle distinguishes "never charted" (new) from "returned after an
	// absence" (re-entry).
	PositionChange null.Int `json:"positionChange,omitempty" swaggertype:"integer"`
	Lifecycle      string   `json:"lifecycle"`
}
