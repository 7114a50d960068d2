package service

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/cache"
	"github.com/chartloop/backend/internal/model/types"
	"github.com/chartloop/backend/internal/pkg/apperr"
	"github.com/chartloop/backend/internal/repo"
)

// RecordsStore is the persistence surface of the records engine.
// *repo.GroupRecords satisfies it.
type RecordsStore interface {
	GetRecords(ctx context.Context, groupID int64) (*model.GroupRecords, error)
	SetStatus(ctx context.Context, groupID int64, status string) error
	SaveRecords(ctx context.Context, groupID int64, status string, payload *types.RecordsPayload) error
}

// ChartHistoryReader reads a group's persisted chart history.
// *repo.ChartEntry satisfies it.
type ChartHistoryReader interface {
	GetByGroupAndType(ctx context.Context, groupID int64, entryType string) ([]*model.ChartEntry, error)
	GetChart(ctx context.Context, groupID int64, weekStart time.Time, entryType string) ([]*model.ChartEntry, error)
}

// ContributionHistoryReader reads a group's full contribution history.
// *repo.MemberEntryContribution satisfies it.
type ContributionHistoryReader interface {
	GetByGroupAndType(ctx context.Context, groupID int64, entryType string) ([]*model.MemberEntryContribution, error)
}

// MemberRecordInput is everything a member-record reducer may aggregate over:
// the group's full contribution history and its chart history, both keyed by
// entry type.
type MemberRecordInput struct {
	Contributions map[string][]*model.MemberEntryContribution
	Charts        map[string][]*model.ChartEntry
}

// MemberRecordReducer folds the history into one aggregate per member; the
// engine arg-maxes the result. Ties break toward the lowest member id.
type MemberRecordReducer func(in *MemberRecordInput) map[int64]float64

// Records computes a group's superlative record book. It assumes a single
// writer per group: concurrency control belongs to the generation lease, not
// here.
type Records struct {
	store         RecordsStore
	charts        ChartHistoryReader
	contributions ContributionHistoryReader

	memberReducers map[string]MemberRecordReducer
}

func NewRecords(groupRecordsRepo *repo.GroupRecords, chartEntryRepo *repo.ChartEntry, memberEntryContributionRepo *repo.MemberEntryContribution) *Records {
	return &Records{
		store:          groupRecordsRepo,
		charts:         chartEntryRepo,
		contributions:  memberEntryContributionRepo,
		memberReducers: defaultMemberReducers(),
	}
}

// RegisterMemberReducer adds or replaces a member-record category. Must be
// called before the first Recalculate; the registry is not synchronized.
func (s *Records) RegisterMemberReducer(category string, reducer MemberRecordReducer) {
	s.memberReducers[category] = reducer
}

// GetRecords serves the group's record book through the shared cache. The
// stored payload remains readable while a recalculation is in flight.
func (s *Records) GetRecords(ctx context.Context, groupID int64) (*model.GroupRecords, error) {
	var records model.GroupRecords
	key := strconv.FormatInt(groupID, 10)
	_, err := cache.GroupRecords.MutexGetSet(key, &records, func() (model.GroupRecords, error) {
		stored, err := s.store.GetRecords(ctx, groupID)
		if err != nil {
			return model.GroupRecords{}, err
		}
		return *stored, nil
	}, time.Minute*10)
	if err != nil {
		return nil, err
	}
	return &records, nil
}

// Recalculate drives the record book through calculating into completed, or
// failed when the scan errors. incremental narrows the entry-record work to
// what the newly charted week could have changed; it silently widens to a
// full scan when there is no previous completed payload to build on.
func (s *Records) Recalculate(ctx context.Context, groupID int64, incremental bool, latestWeek time.Time) error {
	if err := s.store.SetStatus(ctx, groupID, constant.RecordsStatusCalculating); err != nil {
		return err
	}
	cache.GroupRecords.Delete(strconv.FormatInt(groupID, 10))

	payload, err := s.compute(ctx, groupID, incremental, latestWeek)
	if err != nil {
		if statusErr := s.store.SetStatus(ctx, groupID, constant.RecordsStatusFailed); statusErr != nil {
			log.Error().Err(statusErr).Int64("groupId", groupID).Msg("failed to mark records as failed")
		}
		cache.GroupRecords.Delete(strconv.FormatInt(groupID, 10))
		return err
	}

	if err := s.store.SaveRecords(ctx, groupID, constant.RecordsStatusCompleted, payload); err != nil {
		return err
	}
	cache.GroupRecords.Delete(strconv.FormatInt(groupID, 10))
	return nil
}

func (s *Records) compute(ctx context.Context, groupID int64, incremental bool, latestWeek time.Time) (*types.RecordsPayload, error) {
	var previous *types.RecordsPayload
	if incremental {
		stored, err := s.store.GetRecords(ctx, groupID)
		if err != nil && err != apperr.ErrNotFound {
			return nil, err
		}
		if stored != nil && stored.Records != nil {
			previous = stored.Records
		}
	}

	payload := types.NewRecordsPayload()

	input := &MemberRecordInput{
		Contributions: make(map[string][]*model.MemberEntryContribution, len(constant.EntryTypes)),
		Charts:        make(map[string][]*model.ChartEntry, len(constant.EntryTypes)),
	}

	for _, entryType := range constant.EntryTypes {
		contributions, err := s.contributions.GetByGroupAndType(ctx, groupID, entryType)
		if err != nil {
			return nil, err
		}
		input.Contributions[entryType] = contributions

		if previous != nil {
			if err := s.computeEntryRecordsIncremental(ctx, payload, previous, groupID, entryType, latestWeek); err != nil {
				return nil, err
			}
			continue
		}

		history, err := s.charts.GetByGroupAndType(ctx, groupID, entryType)
		if err != nil {
			return nil, err
		}
		input.Charts[entryType] = history
		s.computeEntryRecordsFull(payload, history)
	}

	if err := s.computeMemberRecords(ctx, payload, input, groupID, previous != nil); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *Records) computeEntryRecordsFull(payload *types.RecordsPayload, history []*model.ChartEntry) {
	for _, entry := range history {
		if entry.Score.Valid {
			maybeSetEntryRecord(payload, types.RecordHighestScore, entry, entry.Score.Float64)
		}
		maybeSetEntryRecord(payload, types.RecordMostPlays, entry, float64(entry.Playcount))
	}

	s.computeReign(payload, history)
	s.computeReEntries(payload, history)
}

// computeEntryRecordsIncremental narrows the scan: the max-comparison
// categories only need the new week's entries, while the streak and re-entry
// categories rescan history only when the new week could have moved them.
func (s *Records) computeEntryRecordsIncremental(ctx context.Context, payload *types.RecordsPayload, previous *types.RecordsPayload, groupID int64, entryType string, latestWeek time.Time) error {
	carryEntryRecord(payload, previous, types.RecordHighestScore, entryType)
	carryEntryRecord(payload, previous, types.RecordMostPlays, entryType)
	carryEntryRecord(payload, previous, types.RecordLongestReign, entryType)
	carryEntryRecord(payload, previous, types.RecordMostReEntries, entryType)

	newWeek, err := s.charts.GetChart(ctx, groupID, latestWeek, entryType)
	if err != nil {
		return err
	}

	rescanStreaks := false
	for _, entry := range newWeek {
		if entry.Score.Valid {
			maybeSetEntryRecord(payload, types.RecordHighestScore, entry, entry.Score.Float64)
		}
		maybeSetEntryRecord(payload, types.RecordMostPlays, entry, float64(entry.Playcount))
		if entry.Position == 1 || entry.Lifecycle == constant.LifecycleReEntry {
			rescanStreaks = true
		}
	}
	if !rescanStreaks {
		return nil
	}

	history, err := s.charts.GetByGroupAndType(ctx, groupID, entryType)
	if err != nil {
		return err
	}
	s.computeReign(payload, history)
	s.computeReEntries(payload, history)
	return nil
}

// computeReign finds the longest run of consecutive weeks the same entry
// spent at position 1. history arrives ordered week ascending.
func (s *Records) computeReign(payload *types.RecordsPayload, history []*model.ChartEntry) {
	var best, current *model.ChartEntry
	var bestLen, currentLen int
	var lastWeek time.Time

	for _, entry := range history {
		if entry.Position != 1 {
			continue
		}
		consecutive := current != nil &&
			current.EntryKey == entry.EntryKey &&
			entry.WeekStart.Sub(lastWeek) == time.Hour*24*7
		if consecutive {
			currentLen++
		} else {
			current = entry
			currentLen = 1
		}
		lastWeek = entry.WeekStart
		if currentLen > bestLen {
			best = current
			bestLen = currentLen
		}
	}

	if best != nil {
		maybeSetEntryRecord(payload, types.RecordLongestReign, best, float64(bestLen))
	}
}

func (s *Records) computeReEntries(payload *types.RecordsPayload, history []*model.ChartEntry) {
	counts := make(map[string]int)
	latest := make(map[string]*model.ChartEntry)
	for _, entry := range history {
		latest[entry.EntryKey] = entry
		if entry.Lifecycle == constant.LifecycleReEntry {
			counts[entry.EntryKey]++
		}
	}
	for entryKey, count := range counts {
		maybeSetEntryRecord(payload, types.RecordMostReEntries, latest[entryKey], float64(count))
	}
}

func (s *Records) computeMemberRecords(ctx context.Context, payload *types.RecordsPayload, input *MemberRecordInput, groupID int64, chartsUnloaded bool) error {
	// incremental entry-record passes skip the full chart load; fetch it here
	// since the reducers aggregate over the whole history. A failed load
	// fails the scan: a record book computed off missing charts must not be
	// saved as completed.
	if chartsUnloaded {
		for _, entryType := range constant.EntryTypes {
			history, err := s.charts.GetByGroupAndType(ctx, groupID, entryType)
			if err != nil {
				return errors.Wrapf(err, "failed to load %s chart history for member records", entryType)
			}
			input.Charts[entryType] = history
		}
	}

	for category, reduce := range s.memberReducers {
		aggregates := reduce(input)
		memberID, value, ok := argMaxMember(aggregates)
		if !ok {
			continue
		}
		payload.Members[category] = &types.MemberRecord{
			MemberID: memberID,
			Value:    value,
		}
	}
	return nil
}

// argMaxMember picks the member with the largest aggregate, lowest member id
// winning ties.
func argMaxMember(aggregates map[int64]float64) (int64, float64, bool) {
	var bestID int64
	var bestValue float64
	found := false
	for memberID, value := range aggregates {
		if !found || value > bestValue || (value == bestValue && memberID < bestID) {
			bestID = memberID
			bestValue = value
			found = true
		}
	}
	return bestID, bestValue, found
}

func entryRecordKey(category, entryType string) string {
	return category + constant.CacheSep + entryType
}

func maybeSetEntryRecord(payload *types.RecordsPayload, category string, entry *model.ChartEntry, value float64) {
	key := entryRecordKey(category, entry.EntryType)
	existing, ok := payload.Entries[key]
	if ok && existing.Value >= value {
		return
	}
	weekStart := entry.WeekStart
	payload.Entries[key] = &types.EntryRecord{
		EntryType: entry.EntryType,
		EntryKey:  entry.EntryKey,
		Name:      entry.Name,
		Artist:    entry.Artist,
		Value:     value,
		WeekStart: &weekStart,
	}
}

func carryEntryRecord(payload *types.RecordsPayload, previous *types.RecordsPayload, category, entryType string) {
	key := entryRecordKey(category, entryType)
	if record, ok := previous.Entries[key]; ok {
		payload.Entries[key] = record
	}
}

func defaultMemberReducers() map[string]MemberRecordReducer {
	return map[string]MemberRecordReducer{
		types.RecordTopContributor: func(in *MemberRecordInput) map[int64]float64 {
			totals := make(map[int64]float64)
			for _, contributions := range in.Contributions {
				for _, c := range contributions {
					totals[c.MemberID] += c.Value
				}
			}
			return totals
		},
		types.RecordMostPlaysGiven: func(in *MemberRecordInput) map[int64]float64 {
			totals := make(map[int64]float64)
			for _, contributions := range in.Contributions {
				for _, c := range contributions {
					totals[c.MemberID] += float64(c.Playcount)
				}
			}
			return totals
		},
		types.RecordBestAttendance: func(in *MemberRecordInput) map[int64]float64 {
			weeks := make(map[int64]map[time.Time]struct{})
			for _, contributions := range in.Contributions {
				for _, c := range contributions {
					if weeks[c.MemberID] == nil {
						weeks[c.MemberID] = make(map[time.Time]struct{})
					}
					weeks[c.MemberID][c.WeekStart] = struct{}{}
				}
			}
			totals := make(map[int64]float64, len(weeks))
			for memberID, set := range weeks {
				totals[memberID] = float64(len(set))
			}
			return totals
		},
		types.RecordBroadestTaste: func(in *MemberRecordInput) map[int64]float64 {
			entries := make(map[int64]map[string]struct{})
			for entryType, contributions := range in.Contributions {
				for _, c := range contributions {
					if entries[c.MemberID] == nil {
						entries[c.MemberID] = make(map[string]struct{})
					}
					entries[c.MemberID][entryType+constant.CacheSep+c.EntryKey] = struct{}{}
				}
			}
			totals := make(map[int64]float64, len(entries))
			for memberID, set := range entries {
				totals[memberID] = float64(len(set))
			}
			return totals
		},
		types.RecordMostSoleDriver: func(in *MemberRecordInput) map[int64]float64 {
			// entries only ever contributed to by a single member
			soleMember := make(map[string]int64)
			shared := make(map[string]struct{})
			for entryType, contributions := range in.Contributions {
				for _, c := range contributions {
					key := entryType + constant.CacheSep + c.EntryKey
					if _, ok := shared[key]; ok {
						continue
					}
					if existing, ok := soleMember[key]; ok && existing != c.MemberID {
						shared[key] = struct{}{}
						delete(soleMember, key)
						continue
					}
					soleMember[key] = c.MemberID
				}
			}
			totals := make(map[int64]float64)
			for _, memberID := range soleMember {
				totals[memberID]++
			}
			return totals
		},
		types.RecordMostDebuts: func(in *MemberRecordInput) map[int64]float64 {
			// debuts a member helped: entries charting as new in a week the
			// member contributed to them
			debuts := make(map[string]time.Time)
			for entryType, history := range in.Charts {
				for _, entry := range history {
					if entry.Lifecycle == constant.LifecycleNew {
						debuts[entryType+constant.CacheSep+entry.EntryKey+constant.CacheSep+entry.WeekStart.UTC().Format(time.RFC3339)] = entry.WeekStart
					}
				}
			}
			totals := make(map[int64]float64)
			for entryType, contributions := range in.Contributions {
				for _, c := range contributions {
					key := entryType + constant.CacheSep + c.EntryKey + constant.CacheSep + c.WeekStart.UTC().Format(time.RFC3339)
					if _, ok := debuts[key]; ok {
						totals[c.MemberID]++
					}
				}
			}
			return totals
		},
	}
}
