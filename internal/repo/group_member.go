package repo

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/repo/selector"
)

type GroupMember struct {
	db  *bun.DB
	sel selector.S[model.GroupMember]
}

func NewGroupMember(db *bun.DB) *GroupMember {
	return &GroupMember{
		db:  db,
		sel: selector.New[model.GroupMember](db),
	}
}

func (r *GroupMember) GetMembersByGroupID(ctx context.Context, groupID int64) ([]*model.GroupMember, error) {
	return r.sel.SelectMany(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ?", groupID).Order("member_id ASC")
	})
}

func (r *GroupMember) RemoveMember(ctx context.Context, groupID int64, memberID int64) error {
	_, err := r.db.NewDelete().
		Model((*model.GroupMember)(nil)).
		Where("group_id = ?", groupID).
		Where("member_id = ?", memberID).
		Exec(ctx)
	return err
}
