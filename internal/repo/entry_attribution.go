package repo

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/repo/selector"
)

type EntryAttribution struct {
	db  *bun.DB
	sel selector.S[model.EntryAttribution]
}

func NewEntryAttribution(db *bun.DB) *EntryAttribution {
	return &EntryAttribution{
		db:  db,
		sel: selector.New[model.EntryAttribution](db),
	}
}

func (r *EntryAttribution) GetByEntry(ctx context.Context, groupID int64, entryType string, entryKey string) (*model.EntryAttribution, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ?", groupID).
			Where("entry_type = ?", entryType).
			Where("entry_key = ?", entryKey)
	})
}

func (r *EntryAttribution) UpsertAttribution(ctx context.Context, attribution *model.EntryAttribution) error {
	_, err := r.db.NewInsert().
		Model(attribution).
		On("CONFLICT (group_id, entry_type, entry_key) DO UPDATE").
		Set("major_driver_member_id = EXCLUDED.major_driver_member_id").
		Set("major_driver_value = EXCLUDED.major_driver_value").
		Set("last_computed_at = EXCLUDED.last_computed_at").
		Exec(ctx)
	return err
}

// InvalidateByEntries nulls last_computed_at for the given keys so the next
// read recomputes them. Called after a generation run touches a week.
func (r *EntryAttribution) InvalidateByEntries(ctx context.Context, groupID int64, entryType string, entryKeys []string) error {
	if len(entryKeys) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().
		Model((*model.EntryAttribution)(nil)).
		Set("last_computed_at = NULL").
		Where("group_id = ?", groupID).
		Where("entry_type = ?", entryType).
		Where("entry_key IN (?)", bun.In(entryKeys)).
		Exec(ctx)
	return err
}

// InvalidateByMember nulls every attribution currently crediting the member,
// used when a member leaves the group.
func (r *EntryAttribution) InvalidateByMember(ctx context.Context, groupID int64, memberID int64) error {
	_, err := r.db.NewUpdate().
		Model((*model.EntryAttribution)(nil)).
		Set("last_computed_at = NULL").
		Where("group_id = ?", groupID).
		Where("major_driver_member_id = ?", memberID).
		Exec(ctx)
	return err
}
