package repo

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/types"
	"github.com/chartloop/backend/internal/repo/selector"
)

type GroupRecords struct {
	db  *bun.DB
	sel selector.S[model.GroupRecords]
}

func NewGroupRecords(db *bun.DB) *GroupRecords {
	return &GroupRecords{
		db:  db,
		sel: selector.New[model.GroupRecords](db),
	}
}

func (r *GroupRecords) GetRecords(ctx context.Context, groupID int64) (*model.GroupRecords, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ?", groupID)
	})
}

// SetStatus transitions the record book's status without touching the
// payload, so readers keep serving the previous records while a
// recalculation is underway.
func (r *GroupRecords) SetStatus(ctx context.Context, groupID int64, status string) error {
	records := &model.GroupRecords{
		GroupID:   groupID,
		Status:    status,
		UpdatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(records).
		On("CONFLICT (group_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (r *GroupRecords) SaveRecords(ctx context.Context, groupID int64, status string, payload *types.RecordsPayload) error {
	records := &model.GroupRecords{
		GroupID:   groupID,
		Status:    status,
		Records:   payload,
		UpdatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(records).
		On("CONFLICT (group_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("records = EXCLUDED.records").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
