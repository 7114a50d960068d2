package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/repo/selector"
)

type MemberWeeklyStats struct {
	db  *bun.DB
	sel selector.S[model.MemberWeeklyStats]
}

func NewMemberWeeklyStats(db *bun.DB) *MemberWeeklyStats {
	return &MemberWeeklyStats{
		db:  db,
		sel: selector.New[model.MemberWeeklyStats](db),
	}
}

func (r *MemberWeeklyStats) GetStats(ctx context.Context, memberID int64, weekStart time.Time, entryType string) (*model.MemberWeeklyStats, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("member_id = ?", memberID).
			Where("week_start = ?", weekStart).
			Where("entry_type = ?", entryType)
	})
}

// SaveStats is idempotent: refetching an already cached (member, week, type)
// replaces the stored rows instead of duplicating them.
func (r *MemberWeeklyStats) SaveStats(ctx context.Context, stats *model.MemberWeeklyStats) error {
	_, err := r.db.NewInsert().
		Model(stats).
		On("CONFLICT (member_id, week_start, entry_type) DO UPDATE").
		Set("rows = EXCLUDED.rows").
		Set("fetched_at = EXCLUDED.fetched_at").
		Exec(ctx)
	return err
}

func (r *MemberWeeklyStats) GetWeekStartsOlderThan(ctx context.Context, cutoff time.Time) ([]time.Time, error) {
	var weekStarts []time.Time
	err := r.db.NewSelect().
		Model((*model.MemberWeeklyStats)(nil)).
		ColumnExpr("DISTINCT week_start").
		Where("week_start < ?", cutoff).
		OrderExpr("week_start ASC").
		Scan(ctx, &weekStarts)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return weekStarts, nil
}

func (r *MemberWeeklyStats) GetStatsForWeek(ctx context.Context, weekStart time.Time) ([]*model.MemberWeeklyStats, error) {
	var stats []*model.MemberWeeklyStats
	err := r.db.NewSelect().
		Model(&stats).
		Where("week_start = ?", weekStart).
		Order("member_id ASC", "entry_type ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return stats, nil
}

func (r *MemberWeeklyStats) DeleteStatsForWeek(ctx context.Context, weekStart time.Time) error {
	_, err := r.db.NewDelete().
		Model((*model.MemberWeeklyStats)(nil)).
		Where("week_start = ?", weekStart).
		Exec(ctx)
	return err
}
