package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/chartloop/backend/internal/app/appconfig"
	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/types"
	"github.com/chartloop/backend/internal/pkg/apperr"
	"github.com/chartloop/backend/internal/pkg/async"
	"github.com/chartloop/backend/internal/pkg/chartweek"
	"github.com/chartloop/backend/internal/pkg/lease"
	"github.com/chartloop/backend/internal/repo"
)

// GroupStore is the persistence surface of the coordinator. It doubles as
// the lease.Store since the lease lives on the group row. *repo.Group
// satisfies it.
type GroupStore interface {
	lease.Store
	GetGroupByID(ctx context.Context, groupID int64) (*model.Group, error)
	UpdateProgress(ctx context.Context, groupID int64, progress *types.GenerationProgress) error
	SetDiagnostics(ctx context.Context, groupID int64, failedMembers []int64, aborted bool) error
	ClearDiagnostics(ctx context.Context, groupID int64) error
}

// MemberLister lists a group's roster. *repo.GroupMember satisfies it.
type MemberLister interface {
	GetMembersByGroupID(ctx context.Context, groupID int64) ([]*model.GroupMember, error)
}

// ContributionWriter persists scored contributions. *repo.MemberEntryContribution
// satisfies it.
type ContributionWriter interface {
	BatchSaveContributions(ctx context.Context, contributions []*model.MemberEntryContribution) error
	DeleteByGroupWeekAndType(ctx context.Context, groupID int64, weekStart time.Time, entryType string) error
}

// WeeklyStatsProvider yields one member's raw stats for a closed week.
// *MemberStats satisfies it.
type WeeklyStatsProvider interface {
	GetOrFetch(ctx context.Context, member *model.GroupMember, weekStart time.Time, entryType string) (*types.RawWeeklyStats, error)
}

// WeekCharter persists one week's chart. *Chart satisfies it.
type WeekCharter interface {
	SaveWeek(ctx context.Context, group *model.Group, weekStart time.Time, entryType string, contributions []*model.MemberEntryContribution) ([]*model.ChartEntry, error)
	LatestChartedWeek(ctx context.Context, groupID int64) (time.Time, error)
}

// AttributionToucher invalidates attributions a run touched. *Attribution
// satisfies it.
type AttributionToucher interface {
	Touch(ctx context.Context, groupID int64, entryType string, entryKeys []string) error
}

// RecordsRunner recalculates the record book. *Records satisfies it.
type RecordsRunner interface {
	Recalculate(ctx context.Context, groupID int64, incremental bool, latestWeek time.Time) error
}

// Generation orchestrates one full chart generation run for a group: it
// acquires the single-flight lease, walks the missing closed weeks oldest
// first, and drives fetch, score, aggregate, attribution and records in
// order. Weeks are strictly sequential because each week's position deltas
// read the previous week's finalized chart.
type Generation struct {
	conf *appconfig.Config

	groups        GroupStore
	members       MemberLister
	contributions ContributionWriter
	stats         WeeklyStatsProvider
	scorer        *Scorer
	charts        WeekCharter
	attribution   AttributionToucher
	records       RecordsRunner

	lease   *lease.Manager
	redsync *redsync.Redsync

	now func() time.Time
}

func NewGeneration(
	conf *appconfig.Config,
	groupRepo *repo.Group,
	groupMemberRepo *repo.GroupMember,
	memberEntryContributionRepo *repo.MemberEntryContribution,
	memberStatsService *MemberStats,
	scorer *Scorer,
	chartService *Chart,
	attributionService *Attribution,
	recordsService *Records,
	rs *redsync.Redsync,
) *Generation {
	return &Generation{
		conf:          conf,
		groups:        groupRepo,
		members:       groupMemberRepo,
		contributions: memberEntryContributionRepo,
		stats:         memberStatsService,
		scorer:        scorer,
		charts:        chartService,
		attribution:   attributionService,
		records:       recordsService,
		lease:         lease.NewManager(groupRepo, conf.GenerationLeaseTimeout),
		redsync:       rs,
		now:           time.Now,
	}
}

type memberWeekStats struct {
	member *model.GroupMember
	stats  map[string]*types.RawWeeklyStats
}

// Start runs one generation for the group. Exactly one concurrent caller
// wins; the rest receive apperr.ErrAlreadyGenerating and do no work.
func (s *Generation) Start(ctx context.Context, groupID int64) (*types.GenerationResult, error) {
	mutex := s.redsync.NewMutex(
		"mutex:generate:"+strconv.FormatInt(groupID, 10),
		redsync.WithExpiry(s.lease.Timeout()),
		redsync.WithTries(1),
	)
	if err := mutex.Lock(); err != nil {
		return nil, apperr.ErrAlreadyGenerating
	}
	defer func() {
		if _, err := mutex.Unlock(); err != nil {
			log.Warn().Err(err).Int64("groupId", groupID).Msg("failed to unlock generation mutex")
		}
	}()

	if err := s.lease.Acquire(ctx, groupID); err != nil {
		if errors.Is(err, lease.ErrHeld) {
			return nil, apperr.ErrAlreadyGenerating
		}
		return nil, err
	}
	defer func() {
		// best effort: a failed release still expires via the lease timeout
		if err := s.lease.Release(context.Background(), groupID); err != nil {
			log.Error().Err(err).Int64("groupId", groupID).Msg("failed to release generation lease")
		}
	}()

	return s.run(ctx, groupID)
}

func (s *Generation) run(ctx context.Context, groupID int64) (*types.GenerationResult, error) {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !lo.Contains(constant.ChartSizes, group.ChartSize) {
		return nil, apperr.ErrInvalidReq.Msg("unsupported chart size %d", group.ChartSize)
	}

	weeks, err := s.missingWeeks(ctx, group)
	if err != nil {
		return nil, err
	}
	if len(weeks) == 0 {
		log.Info().Int64("groupId", groupID).Msg("generation: nothing to do")
		return &types.GenerationResult{}, nil
	}

	members, err := s.members.GetMembersByGroupID(ctx, group.GroupID)
	if err != nil {
		return nil, err
	}

	result := &types.GenerationResult{}
	failedMembers := map[int64]struct{}{}
	touched := map[string]map[string]struct{}{}

	for i, week := range weeks {
		progress := &types.GenerationProgress{
			CurrentWeek: i + 1,
			TotalWeeks:  len(weeks),
			Stage:       constant.StageFetching,
		}
		if err := s.groups.UpdateProgress(ctx, group.GroupID, progress); err != nil {
			return nil, err
		}

		succeeded, weekFailed := s.fetchWeek(ctx, members, week)
		for _, memberID := range weekFailed {
			failedMembers[memberID] = struct{}{}
		}

		if len(succeeded) == 0 {
			// zero usable members means the week's chart would be empty noise;
			// abort the whole run rather than chart it
			for _, member := range members {
				failedMembers[member.MemberID] = struct{}{}
			}
			result.FailedMembers = sortedMemberIDs(failedMembers)
			result.Aborted = true
			if err := s.groups.SetDiagnostics(ctx, group.GroupID, result.FailedMembers, true); err != nil {
				return nil, err
			}
			log.Warn().
				Int64("groupId", group.GroupID).
				Time("weekStart", week).
				Msg("generation: aborted, no member data for week")
			return result, nil
		}

		progress.Stage = constant.StageCharting
		if err := s.groups.UpdateProgress(ctx, group.GroupID, progress); err != nil {
			return nil, err
		}

		if err := s.chartWeek(ctx, group, week, succeeded, touched); err != nil {
			return nil, err
		}
		result.WeeksCharted++
	}

	for entryType, keys := range touched {
		if err := s.attribution.Touch(ctx, group.GroupID, entryType, lo.Keys(keys)); err != nil {
			return nil, err
		}
	}

	if err := s.groups.UpdateProgress(ctx, group.GroupID, &types.GenerationProgress{
		CurrentWeek: len(weeks),
		TotalWeeks:  len(weeks),
		Stage:       constant.StageRecords,
	}); err != nil {
		return nil, err
	}

	incremental := len(weeks) == 1
	if err := s.records.Recalculate(ctx, group.GroupID, incremental, weeks[len(weeks)-1]); err != nil {
		// charts and records fail independently: the charts this run produced
		// stay available while the record book reports failed
		log.Error().Err(err).Int64("groupId", group.GroupID).Msg("generation: records recalculation failed")
	}

	result.FailedMembers = sortedMemberIDs(failedMembers)
	if err := s.groups.SetDiagnostics(ctx, group.GroupID, result.FailedMembers, false); err != nil {
		return nil, err
	}

	log.Info().
		Int64("groupId", group.GroupID).
		Int("weeksCharted", result.WeeksCharted).
		Ints64("failedMembers", result.FailedMembers).
		Msg("generation: finished")
	return result, nil
}

// fetchWeek pulls one closed week's stats for the whole roster on a bounded
// pool. A member either succeeds for all entry types or fails for the week;
// failures never stop the other members.
func (s *Generation) fetchWeek(ctx context.Context, members []*model.GroupMember, week time.Time) ([]*memberWeekStats, []int64) {
	results, err := async.Map(members, s.conf.ScrobbleFetchConcurrency, func(member *model.GroupMember) (*memberWeekStats, error) {
		stats := make(map[string]*types.RawWeeklyStats, len(constant.EntryTypes))
		for _, entryType := range constant.EntryTypes {
			raw, err := s.stats.GetOrFetch(ctx, member, week, entryType)
			if err != nil {
				return nil, errors.Wrapf(err, "member %d", member.MemberID)
			}
			stats[entryType] = raw
		}
		return &memberWeekStats{member: member, stats: stats}, nil
	})
	if err != nil {
		log.Warn().Err(err).Time("weekStart", week).Msg("generation: some member fetches failed")
	}

	succeededIDs := make(map[int64]struct{}, len(results))
	for _, r := range results {
		succeededIDs[r.member.MemberID] = struct{}{}
	}
	failed := make([]int64, 0)
	for _, member := range members {
		if _, ok := succeededIDs[member.MemberID]; !ok {
			failed = append(failed, member.MemberID)
		}
	}
	return results, failed
}

// chartWeek scores and aggregates one week for every entry type, replacing
// whatever a previous run wrote for the same week.
func (s *Generation) chartWeek(ctx context.Context, group *model.Group, week time.Time, fetched []*memberWeekStats, touched map[string]map[string]struct{}) error {
	for _, entryType := range constant.EntryTypes {
		contributions := make([]*model.MemberEntryContribution, 0)
		for _, memberStats := range fetched {
			scored, err := s.scorer.ScoreMemberWeek(group, memberStats.stats[entryType])
			if err != nil {
				return err
			}
			contributions = append(contributions, scored...)
		}

		if err := s.contributions.DeleteByGroupWeekAndType(ctx, group.GroupID, week, entryType); err != nil {
			return err
		}
		if err := s.contributions.BatchSaveContributions(ctx, contributions); err != nil {
			return err
		}

		if _, err := s.charts.SaveWeek(ctx, group, week, entryType, contributions); err != nil {
			return err
		}

		if touched[entryType] == nil {
			touched[entryType] = map[string]struct{}{}
		}
		for _, c := range contributions {
			touched[entryType][c.EntryKey] = struct{}{}
		}
	}
	return nil
}

func (s *Generation) missingWeeks(ctx context.Context, group *model.Group) ([]time.Time, error) {
	lastCharted, err := s.charts.LatestChartedWeek(ctx, group.GroupID)
	if err != nil {
		return nil, err
	}
	return chartweek.ClosedStartsBetween(lastCharted, s.now(), group.TrackingDayOfWeek, s.conf.StatsRetentionWeeks), nil
}

// Status reports the group's run state. The last run's diagnostics are
// single-read: returning them here clears them.
func (s *Generation) Status(ctx context.Context, groupID int64) (*types.GenerateStatus, error) {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	weeks, err := s.missingWeeks(ctx, group)
	if err != nil {
		return nil, err
	}

	status := &types.GenerateStatus{
		InProgress:        group.InProgress,
		Progress:          group.Progress,
		LastFailedMembers: group.LastFailedMembers,
		LastRunAborted:    group.LastRunAborted,
		CanGenerateMore:   len(weeks) > 0,
	}

	if len(group.LastFailedMembers) > 0 || group.LastRunAborted.Valid {
		if err := s.groups.ClearDiagnostics(ctx, groupID); err != nil {
			log.Warn().Err(err).Int64("groupId", groupID).Msg("failed to clear run diagnostics")
		}
	}

	return status, nil
}

func sortedMemberIDs(set map[int64]struct{}) []int64 {
	ids := lo.Keys(set)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
