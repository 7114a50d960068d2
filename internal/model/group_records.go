package model

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/chartloop/backend/internal/model/types"
)

// GroupRecords is the per-group superlative records document.
// Status follows calculating -> completed, or calculating -> failed when the
// scan errors; a failed records document never rolls back chart data.
type GroupRecords struct {
	bun.BaseModel `bun:"group_records,alias:gr"`

	GroupID int64  `bun:",pk" json:"groupId"`
	Status  string `json:"status"`

	Records *types.RecordsPayload `bun:"type:jsonb" json:"records,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}
