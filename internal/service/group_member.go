package service

import (
	"context"

	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/repo"
)

// MemberRemover deletes a member from the roster. *repo.GroupMember
// satisfies it.
type MemberRemover interface {
	RemoveMember(ctx context.Context, groupID int64, memberID int64) error
}

// AttributionInvalidator drops attributions crediting a member.
// *Attribution satisfies it.
type AttributionInvalidator interface {
	InvalidateMember(ctx context.Context, groupID int64, memberID int64) error
}

type GroupMember struct {
	store       *repo.GroupMember
	remover     MemberRemover
	attribution AttributionInvalidator
}

func NewGroupMember(groupMemberRepo *repo.GroupMember, attributionService *Attribution) *GroupMember {
	return &GroupMember{
		store:       groupMemberRepo,
		remover:     groupMemberRepo,
		attribution: attributionService,
	}
}

func (s *GroupMember) GetMembersByGroupID(ctx context.Context, groupID int64) ([]*model.GroupMember, error) {
	return s.store.GetMembersByGroupID(ctx, groupID)
}

// RemoveMember deletes the member and invalidates every attribution
// crediting them as a major driver. Historic contributions and charts stay
// untouched; only the cached driver lines recompute lazily.
func (s *GroupMember) RemoveMember(ctx context.Context, groupID int64, memberID int64) error {
	if err := s.remover.RemoveMember(ctx, groupID, memberID); err != nil {
		return err
	}
	return s.attribution.InvalidateMember(ctx, groupID, memberID)
}
