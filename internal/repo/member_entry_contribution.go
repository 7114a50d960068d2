package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/chartloop/backend/internal/model"
)

type MemberEntryContribution struct {
	db *bun.DB
}

func NewMemberEntryContribution(db *bun.DB) *MemberEntryContribution {
	return &MemberEntryContribution{db: db}
}

func (r *MemberEntryContribution) BatchSaveContributions(ctx context.Context, contributions []*model.MemberEntryContribution) error {
	if len(contributions) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().Model(&contributions).Exec(ctx)
	return err
}

// DeleteByGroupWeekAndType clears a week's contributions before a re-run
// writes them again, keeping re-generation idempotent.
func (r *MemberEntryContribution) DeleteByGroupWeekAndType(ctx context.Context, groupID int64, weekStart time.Time, entryType string) error {
	_, err := r.db.NewDelete().
		Model((*model.MemberEntryContribution)(nil)).
		Where("group_id = ?", groupID).
		Where("week_start = ?", weekStart).
		Where("entry_type = ?", entryType).
		Exec(ctx)
	return err
}

func (r *MemberEntryContribution) GetByGroupAndType(ctx context.Context, groupID int64, entryType string) ([]*model.MemberEntryContribution, error) {
	var contributions []*model.MemberEntryContribution
	err := r.db.NewSelect().
		Model(&contributions).
		Where("group_id = ?", groupID).
		Where("entry_type = ?", entryType).
		Order("week_start ASC", "member_id ASC", "entry_key ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return contributions, nil
}

// SumByMemberForEntry returns each member's total contributed value to one
// entry across all recorded weeks, largest totals first with member id as a
// stable tie-break.
func (r *MemberEntryContribution) SumByMemberForEntry(ctx context.Context, groupID int64, entryType string, entryKey string) ([]*model.MemberEntrySum, error) {
	sums := make([]*model.MemberEntrySum, 0)
	err := r.db.NewSelect().
		Model((*model.MemberEntryContribution)(nil)).
		Column("member_id").
		ColumnExpr("SUM(value) AS total").
		Where("group_id = ?", groupID).
		Where("entry_type = ?", entryType).
		Where("entry_key = ?", entryKey).
		Group("member_id").
		OrderExpr("total DESC, member_id ASC").
		Scan(ctx, &sums)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return sums, nil
}
