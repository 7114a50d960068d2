package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/chartloop/backend/internal/model"
)

type ChartEntry struct {
	db *bun.DB
}

func NewChartEntry(db *bun.DB) *ChartEntry {
	return &ChartEntry{db: db}
}

func (r *ChartEntry) BatchSaveEntries(ctx context.Context, entries []*model.ChartEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().Model(&entries).Exec(ctx)
	return err
}

func (r *ChartEntry) DeleteByGroupWeekAndType(ctx context.Context, groupID int64, weekStart time.Time, entryType string) error {
	_, err := r.db.NewDelete().
		Model((*model.ChartEntry)(nil)).
		Where("group_id = ?", groupID).
		Where("week_start = ?", weekStart).
		Where("entry_type = ?", entryType).
		Exec(ctx)
	return err
}

func (r *ChartEntry) GetChart(ctx context.Context, groupID int64, weekStart time.Time, entryType string) ([]*model.ChartEntry, error) {
	var entries []*model.ChartEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("group_id = ?", groupID).
		Where("week_start = ?", weekStart).
		Where("entry_type = ?", entryType).
		Order("position ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return entries, nil
}

// GetLatestWeekStart returns the most recent charted week for a group, or a
// zero time when the group has never been charted.
func (r *ChartEntry) GetLatestWeekStart(ctx context.Context, groupID int64) (time.Time, error) {
	// MAX over an empty set is NULL, not ErrNoRows
	var weekStart sql.NullTime
	err := r.db.NewSelect().
		Model((*model.ChartEntry)(nil)).
		ColumnExpr("MAX(week_start)").
		Where("group_id = ?", groupID).
		Scan(ctx, &weekStart)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, err
	}
	if !weekStart.Valid {
		return time.Time{}, nil
	}
	return weekStart.Time, nil
}

func (r *ChartEntry) GetByGroupAndType(ctx context.Context, groupID int64, entryType string) ([]*model.ChartEntry, error) {
	var entries []*model.ChartEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("group_id = ?", groupID).
		Where("entry_type = ?", entryType).
		Order("week_start ASC", "position ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return entries, nil
}

// GetEverChartedKeys returns the set of entry keys that appeared on any of
// the group's charts strictly before the given week. Lifecycle labeling uses
// it to tell a re-entry from a genuinely new entry.
func (r *ChartEntry) GetEverChartedKeys(ctx context.Context, groupID int64, entryType string, before time.Time) (map[string]struct{}, error) {
	var keys []string
	err := r.db.NewSelect().
		Model((*model.ChartEntry)(nil)).
		ColumnExpr("DISTINCT entry_key").
		Where("group_id = ?", groupID).
		Where("entry_type = ?", entryType).
		Where("week_start < ?", before).
		Scan(ctx, &keys)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set, nil
}
