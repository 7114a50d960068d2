package model

import (
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"

	"github.com/chartloop/backend/internal/model/types"
)

// Group is a listening group. The lease fields (InProgress, LeaseStartedAt,
// Progress) are mutated only by the generation coordinator; settings fields
// (ChartSize, ChartMode, TrackingDayOfWeek) are mutated only by settings
// updates and take effect on the next run.
type Group struct {
	bun.BaseModel `bun:"groups,alias:g"`

	GroupID int64  `bun:",pk,autoincrement" json:"id"`
	Name    string `json:"name"`

	// ChartSize is the number of ranked slots per weekly chart: 10, 20, 50 or 100.
	ChartSize int `json:"chartSize"`

	// ChartMode is one of constant.ChartModePlaysOnly, ChartModeVibe, ChartModeVibeWeight.
	ChartMode string `json:"chartMode"`

	// TrackingDayOfWeek anchors the group's week boundary: 0 = Sunday .. 6 = Saturday.
	TrackingDayOfWeek int `json:"trackingDayOfWeek"`

	InProgress     bool                      `json:"inProgress"`
	LeaseStartedAt null.Time                 `json:"leaseStartedAt,omitempty" swaggertype:"string"`
	Progress       *types.GenerationProgress `bun:"type:jsonb" json:"progress,omitempty"`

	// Single-read diagnostics of the last finished run; cleared by the next
	// status read.
	LastFailedMembers []int64   `bun:"type:jsonb" json:"lastFailedMembers,omitempty"`
	LastRunAborted    null.Bool `json:"lastRunAborted,omitempty" swaggertype:"boolean"`

	CreatedAt time.Time `json:"createdAt"`
}
