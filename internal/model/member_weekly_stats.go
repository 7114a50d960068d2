package model

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/chartloop/backend/internal/model/types"
)

// MemberWeeklyStats is one member's raw listening counts for one closed week
// and entry type, exactly as fetched from the scrobbling provider. Rows keep
// the provider's ordering (the member's own weekly ranking). Immutable once
// the week is fully in the past: refetches overwrite with identical data.
// Rows older than the retention horizon are archived to S3 and deleted; they
// remain re-derivable from the provider.
type MemberWeeklyStats struct {
	bun.BaseModel `bun:"member_weekly_stats,alias:mws"`

	StatsID   int64     `bun:",pk,autoincrement" json:"id"`
	MemberID  int64     `json:"memberId"`
	WeekStart time.Time `json:"weekStart"`
	EntryType string    `json:"entryType"`

	Rows []types.StatsRow `bun:"type:jsonb" json:"rows"`

	FetchedAt time.Time `json:"fetchedAt"`
}
