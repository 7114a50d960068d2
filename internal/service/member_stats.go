package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chartloop/backend/internal/infra"
	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/types"
	"github.com/chartloop/backend/internal/pkg/apperr"
	"github.com/chartloop/backend/internal/repo"
)

// StatsStore is the persistence surface MemberStats needs. *repo.MemberWeeklyStats
// satisfies it.
type StatsStore interface {
	GetStats(ctx context.Context, memberID int64, weekStart time.Time, entryType string) (*model.MemberWeeklyStats, error)
	SaveStats(ctx context.Context, stats *model.MemberWeeklyStats) error
}

// StatsFetcher fetches one member's weekly history from the scrobbling
// provider. *infra.ScrobbleClient satisfies it.
type StatsFetcher interface {
	FetchWeeklyStats(ctx context.Context, externalUsername string, weekStart time.Time, entryType string) ([]types.StatsRow, error)
}

type MemberStats struct {
	store   StatsStore
	fetcher StatsFetcher
}

func NewMemberStats(memberWeeklyStatsRepo *repo.MemberWeeklyStats, scrobbleClient *infra.ScrobbleClient) *MemberStats {
	return &MemberStats{
		store:   memberWeeklyStatsRepo,
		fetcher: scrobbleClient,
	}
}

// GetOrFetch returns a member's raw stats for one closed week and entry type,
// hitting the provider only on a cache miss. Closed weeks are immutable at
// the provider so a stored row never needs refreshing.
func (s *MemberStats) GetOrFetch(ctx context.Context, member *model.GroupMember, weekStart time.Time, entryType string) (*types.RawWeeklyStats, error) {
	stored, err := s.store.GetStats(ctx, member.MemberID, weekStart, entryType)
	if err == nil {
		return &types.RawWeeklyStats{
			MemberID:  member.MemberID,
			WeekStart: stored.WeekStart,
			EntryType: stored.EntryType,
			Rows:      stored.Rows,
		}, nil
	}
	if err != apperr.ErrNotFound {
		return nil, err
	}

	rows, err := s.fetcher.FetchWeeklyStats(ctx, member.ExternalUsername, weekStart, entryType)
	if err != nil {
		return nil, err
	}

	stats := &model.MemberWeeklyStats{
		MemberID:  member.MemberID,
		WeekStart: weekStart,
		EntryType: entryType,
		Rows:      rows,
		FetchedAt: time.Now(),
	}
	if err := s.store.SaveStats(ctx, stats); err != nil {
		// the fetch itself succeeded; a failed cache write only costs a refetch
		log.Warn().
			Err(err).
			Int64("memberId", member.MemberID).
			Time("weekStart", weekStart).
			Str("entryType", entryType).
			Msg("failed to persist fetched weekly stats")
	}

	return &types.RawWeeklyStats{
		MemberID:  member.MemberID,
		WeekStart: weekStart,
		EntryType: entryType,
		Rows:      rows,
	}, nil
}
