package repo

import (
	"context"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/cache"
	"github.com/chartloop/backend/internal/model/types"
	"github.com/chartloop/backend/internal/repo/selector"
)

type Group struct {
	db  *bun.DB
	sel selector.S[model.Group]
}

func NewGroup(db *bun.DB) *Group {
	return &Group{
		db:  db,
		sel: selector.New[model.Group](db),
	}
}

func (r *Group) GetGroups(ctx context.Context) ([]*model.Group, error) {
	return r.sel.SelectMany(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("group_id ASC")
	})
}

func (r *Group) GetGroupByID(ctx context.Context, groupID int64) (*model.Group, error) {
	var group model.Group
	err := cache.GroupByID.Get(strconv.FormatInt(groupID, 10), &group)
	if err == nil {
		return &group, nil
	}

	found, err := r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ?", groupID)
	})
	if err != nil {
		return nil, err
	}

	cache.GroupByID.Set(strconv.FormatInt(groupID, 10), *found, time.Minute*5)
	return found, nil
}

// TryAcquire attempts the generation lease for a group with a single
// conditional update: it only wins if no run is in progress, or the previous
// holder's lease started before staleBefore and can therefore be reclaimed.
func (r *Group) TryAcquire(ctx context.Context, groupID int64, startedAt time.Time, staleBefore time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*model.Group)(nil)).
		Set("in_progress = TRUE").
		Set("lease_started_at = ?", startedAt).
		Where("group_id = ?", groupID).
		Where("in_progress = FALSE OR lease_started_at < ?", staleBefore).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if affected > 0 {
		cache.GroupByID.Delete(strconv.FormatInt(groupID, 10))
	}
	return affected > 0, nil
}

func (r *Group) Release(ctx context.Context, groupID int64) error {
	_, err := r.db.NewUpdate().
		Model((*model.Group)(nil)).
		Set("in_progress = FALSE").
		Set("lease_started_at = NULL").
		Set("progress = NULL").
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return err
	}

	cache.GroupByID.Delete(strconv.FormatInt(groupID, 10))
	return nil
}

func (r *Group) UpdateProgress(ctx context.Context, groupID int64, progress *types.GenerationProgress) error {
	_, err := r.db.NewUpdate().
		Model((*model.Group)(nil)).
		Set("progress = ?", progress).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return err
	}

	cache.GroupByID.Delete(strconv.FormatInt(groupID, 10))
	return nil
}

// SetDiagnostics records the outcome of a finished run. failedMembers and
// aborted persist until the next status read consumes them.
func (r *Group) SetDiagnostics(ctx context.Context, groupID int64, failedMembers []int64, aborted bool) error {
	if failedMembers == nil {
		failedMembers = []int64{}
	}
	_, err := r.db.NewUpdate().
		Model((*model.Group)(nil)).
		Set("last_failed_members = ?", failedMembers).
		Set("last_run_aborted = ?", aborted).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return err
	}

	cache.GroupByID.Delete(strconv.FormatInt(groupID, 10))
	return nil
}

func (r *Group) ClearDiagnostics(ctx context.Context, groupID int64) error {
	_, err := r.db.NewUpdate().
		Model((*model.Group)(nil)).
		Set("last_failed_members = NULL").
		Set("last_run_aborted = NULL").
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return err
	}

	cache.GroupByID.Delete(strconv.FormatInt(groupID, 10))
	return nil
}
