package service

import (
	"context"
	"time"

	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/cache"
	"github.com/chartloop/backend/internal/repo"
)

type Group struct {
	store *repo.Group
}

func NewGroup(groupRepo *repo.Group) *Group {
	return &Group{store: groupRepo}
}

func (s *Group) GetGroups(ctx context.Context) ([]*model.Group, error) {
	var groups []*model.Group
	err := cache.Groups.MutexGetSet(&groups, func() ([]*model.Group, error) {
		return s.store.GetGroups(ctx)
	}, time.Minute*5)
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *Group) GetGroupByID(ctx context.Context, groupID int64) (*model.Group, error) {
	return s.store.GetGroupByID(ctx, groupID)
}
