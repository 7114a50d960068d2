package model

import (
	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"
)

// EntryAttribution caches the member with the largest cumulative contribution
// to an entry ("major driver"). It is an explicit cache entity: the row is
// valid while LastComputedAt is set, and invalidation nulls the fields rather
// than deleting the row, forcing lazy recomputation on the next read.
type EntryAttribution struct {
	bun.BaseModel `bun:"entry_attributions,alias:ea"`

	AttributionID int64  `bun:",pk,autoincrement" json:"id"`
	GroupID       int64  `json:"groupId"`
	EntryType     string `json:"entryType"`
	EntryKey      string `json:"entryKey"`

	MajorDriverMemberID null.Int  `json:"majorDriverMemberId,omitempty" swaggertype:"integer"`
	MajorDriverValue    float64   `json:"majorDriverValue"`
	LastComputedAt      null.Time `json:"lastComputedAt,omitempty" swaggertype:"string"`
}

// Valid reports whether the cached driver may be served without a rescan.
func (a *EntryAttribution) Valid() bool {
	return a != nil && a.LastComputedAt.Valid
}
