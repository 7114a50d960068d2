package model

import (
	"time"

	"github.com/uptrace/bun"
)

// GroupMember links a member to a group together with the scrobbling-account
// username their weekly stats are fetched under.
type GroupMember struct {
	bun.BaseModel `bun:"group_members,alias:gm"`

	ID               int64  `bun:",pk,autoincrement" json:"id"`
	GroupID          int64  `json:"groupId"`
	MemberID         int64  `json:"memberId"`
	ExternalUsername string `json:"externalUsername"`

	JoinedAt time.Time `json:"joinedAt"`
}
