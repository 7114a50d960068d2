package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/types"
	"github.com/chartloop/backend/internal/pkg/apperr"
)

type fakeRecordsStore struct {
	stored   *model.GroupRecords
	statuses []string
}

func (s *fakeRecordsStore) GetRecords(_ context.Context, groupID int64) (*model.GroupRecords, error) {
	if s.stored == nil {
		return nil, apperr.ErrNotFound
	}
	return s.stored, nil
}

func (s *fakeRecordsStore) SetStatus(_ context.Context, groupID int64, status string) error {
	s.statuses = append(s.statuses, status)
	if s.stored != nil {
		s.stored.Status = status
	}
	return nil
}

func (s *fakeRecordsStore) SaveRecords(_ context.Context, groupID int64, status string, payload *types.RecordsPayload) error {
	s.statuses = append(s.statuses, status)
	s.stored = &model.GroupRecords{GroupID: groupID, Status: status, Records: payload}
	return nil
}

type fakeChartHistory struct {
	history map[string][]*model.ChartEntry
	err     error
	// fullLoadErr fails only the full-history reads, leaving single-week
	// reads healthy
	fullLoadErr error

	fullLoads int
}

func (s *fakeChartHistory) GetByGroupAndType(_ context.Context, groupID int64, entryType string) ([]*model.ChartEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.fullLoadErr != nil {
		return nil, s.fullLoadErr
	}
	s.fullLoads++
	return s.history[entryType], nil
}

func (s *fakeChartHistory) GetChart(_ context.Context, groupID int64, weekStart time.Time, entryType string) ([]*model.ChartEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	entries := make([]*model.ChartEntry, 0)
	for _, entry := range s.history[entryType] {
		if entry.WeekStart.Equal(weekStart) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

type fakeContributionHistory struct {
	contributions map[string][]*model.MemberEntryContribution
}

func (s *fakeContributionHistory) GetByGroupAndType(_ context.Context, groupID int64, entryType string) ([]*model.MemberEntryContribution, error) {
	return s.contributions[entryType], nil
}

func week(n int) time.Time {
	return time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*n)
}

func chartEntry(weekN, position int, key string, playcount int, score float64, lifecycle string) *model.ChartEntry {
	return &model.ChartEntry{
		GroupID:   1,
		WeekStart: week(weekN),
		EntryType: constant.EntryTypeArtist,
		Position:  position,
		EntryKey:  key,
		Name:      key,
		Playcount: playcount,
		Score:     null.FloatFrom(score),
		Lifecycle: lifecycle,
	}
}

func weekContribution(weekN int, memberID int64, key string, value float64, playcount int) *model.MemberEntryContribution {
	c := contribution(memberID, key, key, value, playcount)
	c.WeekStart = week(weekN)
	return c
}

func newTestRecords(store *fakeRecordsStore, charts *fakeChartHistory, contributions *fakeContributionHistory) *Records {
	return &Records{
		store:          store,
		charts:         charts,
		contributions:  contributions,
		memberReducers: defaultMemberReducers(),
	}
}

func TestRecalculateFullScanEntryRecords(t *testing.T) {
	store := &fakeRecordsStore{}
	charts := &fakeChartHistory{history: map[string][]*model.ChartEntry{
		constant.EntryTypeArtist: {
			// "a" reigns weeks 0 and 1, "b" interrupts, "a" returns on top
			chartEntry(0, 1, "a", 30, 30, constant.LifecycleNew),
			chartEntry(0, 2, "b", 20, 20, constant.LifecycleNew),
			chartEntry(1, 1, "a", 25, 25, constant.LifecycleContinuing),
			chartEntry(2, 1, "b", 40, 40, constant.LifecycleReEntry),
			chartEntry(3, 1, "a", 10, 10, constant.LifecycleReEntry),
			chartEntry(4, 1, "b", 15, 15, constant.LifecycleReEntry),
		},
	}}
	contributions := &fakeContributionHistory{contributions: map[string][]*model.MemberEntryContribution{}}
	s := newTestRecords(store, charts, contributions)

	require.NoError(t, s.Recalculate(context.Background(), 1, false, week(4)))

	require.Equal(t, []string{constant.RecordsStatusCalculating, constant.RecordsStatusCompleted}, store.statuses)
	payload := store.stored.Records
	require.NotNil(t, payload)

	highest := payload.Entries[entryRecordKey(types.RecordHighestScore, constant.EntryTypeArtist)]
	require.NotNil(t, highest)
	assert.Equal(t, "b", highest.EntryKey)
	assert.Equal(t, 40.0, highest.Value)

	mostPlays := payload.Entries[entryRecordKey(types.RecordMostPlays, constant.EntryTypeArtist)]
	require.NotNil(t, mostPlays)
	assert.Equal(t, "b", mostPlays.EntryKey)

	// "a" held position 1 for two consecutive weeks; no later streak beats it
	reign := payload.Entries[entryRecordKey(types.RecordLongestReign, constant.EntryTypeArtist)]
	require.NotNil(t, reign)
	assert.Equal(t, "a", reign.EntryKey)
	assert.Equal(t, 2.0, reign.Value)

	reEntries := payload.Entries[entryRecordKey(types.RecordMostReEntries, constant.EntryTypeArtist)]
	require.NotNil(t, reEntries)
	assert.Equal(t, "b", reEntries.EntryKey)
	assert.Equal(t, 2.0, reEntries.Value)
}

func TestRecalculateMemberRecords(t *testing.T) {
	store := &fakeRecordsStore{}
	charts := &fakeChartHistory{history: map[string][]*model.ChartEntry{
		constant.EntryTypeArtist: {
			chartEntry(0, 1, "a", 21, 21, constant.LifecycleNew),
			chartEntry(1, 1, "a", 9, 9, constant.LifecycleContinuing),
		},
	}}
	contributions := &fakeContributionHistory{contributions: map[string][]*model.MemberEntryContribution{
		constant.EntryTypeArtist: {
			weekContribution(0, 1, "a", 15, 15),
			weekContribution(0, 2, "a", 6, 6),
			weekContribution(0, 2, "b", 3, 3),
			weekContribution(1, 1, "a", 9, 9),
		},
	}}
	s := newTestRecords(store, charts, contributions)

	require.NoError(t, s.Recalculate(context.Background(), 1, false, week(1)))
	payload := store.stored.Records

	top := payload.Members[types.RecordTopContributor]
	require.NotNil(t, top)
	assert.Equal(t, int64(1), top.MemberID)
	assert.Equal(t, 24.0, top.Value)

	// member 1 contributed in both weeks, member 2 only in the first
	attendance := payload.Members[types.RecordBestAttendance]
	require.NotNil(t, attendance)
	assert.Equal(t, int64(1), attendance.MemberID)
	assert.Equal(t, 2.0, attendance.Value)

	// member 2 touched two distinct entries
	broadest := payload.Members[types.RecordBroadestTaste]
	require.NotNil(t, broadest)
	assert.Equal(t, int64(2), broadest.MemberID)

	// "b" was only ever contributed to by member 2
	sole := payload.Members[types.RecordMostSoleDriver]
	require.NotNil(t, sole)
	assert.Equal(t, int64(2), sole.MemberID)
	assert.Equal(t, 1.0, sole.Value)

	// both members backed "a" on its debut week; lowest id wins the tie
	debuts := payload.Members[types.RecordMostDebuts]
	require.NotNil(t, debuts)
	assert.Equal(t, int64(1), debuts.MemberID)
	assert.Equal(t, 1.0, debuts.Value)
}

func TestRecalculateMarksFailedOnError(t *testing.T) {
	store := &fakeRecordsStore{}
	charts := &fakeChartHistory{err: errors.New("select exploded")}
	contributions := &fakeContributionHistory{contributions: map[string][]*model.MemberEntryContribution{}}
	s := newTestRecords(store, charts, contributions)

	err := s.Recalculate(context.Background(), 1, false, week(0))
	require.Error(t, err)
	assert.Equal(t, []string{constant.RecordsStatusCalculating, constant.RecordsStatusFailed}, store.statuses)
}

func TestRecalculateIncrementalFailsWhenMemberHistoryLoadFails(t *testing.T) {
	store := &fakeRecordsStore{stored: &model.GroupRecords{
		GroupID: 1,
		Status:  constant.RecordsStatusCompleted,
		Records: types.NewRecordsPayload(),
	}}
	// the latest week reads back empty, so only the member-record pass
	// needs the full history
	charts := &fakeChartHistory{fullLoadErr: errors.New("select exploded")}
	contributions := &fakeContributionHistory{contributions: map[string][]*model.MemberEntryContribution{
		constant.EntryTypeArtist: {weekContribution(1, 1, "a", 10, 10)},
	}}
	s := newTestRecords(store, charts, contributions)

	err := s.Recalculate(context.Background(), 1, true, week(1))
	require.Error(t, err)
	assert.Contains(t, store.statuses, constant.RecordsStatusFailed)
	assert.NotEqual(t, constant.RecordsStatusCompleted, store.statuses[len(store.statuses)-1])
}

func TestRecalculateIncrementalCarriesAndCompares(t *testing.T) {
	previous := types.NewRecordsPayload()
	previous.Entries[entryRecordKey(types.RecordHighestScore, constant.EntryTypeArtist)] = &types.EntryRecord{
		EntryType: constant.EntryTypeArtist,
		EntryKey:  "old-champion",
		Name:      "old-champion",
		Value:     50,
	}
	store := &fakeRecordsStore{stored: &model.GroupRecords{
		GroupID: 1,
		Status:  constant.RecordsStatusCompleted,
		Records: previous,
	}}

	charts := &fakeChartHistory{history: map[string][]*model.ChartEntry{
		constant.EntryTypeArtist: {
			chartEntry(5, 1, "upstart", 80, 80, constant.LifecycleNew),
			chartEntry(5, 2, "also-ran", 10, 10, constant.LifecycleNew),
		},
	}}
	contributions := &fakeContributionHistory{contributions: map[string][]*model.MemberEntryContribution{
		constant.EntryTypeArtist: {weekContribution(5, 1, "upstart", 80, 80)},
	}}
	s := newTestRecords(store, charts, contributions)

	require.NoError(t, s.Recalculate(context.Background(), 1, true, week(5)))
	payload := store.stored.Records

	// the new week's top score beats the carried record
	highest := payload.Entries[entryRecordKey(types.RecordHighestScore, constant.EntryTypeArtist)]
	require.NotNil(t, highest)
	assert.Equal(t, "upstart", highest.EntryKey)
	assert.Equal(t, 80.0, highest.Value)
}

func TestRecalculateIncrementalFallsBackToFullScan(t *testing.T) {
	// no previous completed payload to build on
	store := &fakeRecordsStore{}
	charts := &fakeChartHistory{history: map[string][]*model.ChartEntry{
		constant.EntryTypeArtist: {chartEntry(0, 1, "a", 30, 30, constant.LifecycleNew)},
	}}
	contributions := &fakeContributionHistory{contributions: map[string][]*model.MemberEntryContribution{}}
	s := newTestRecords(store, charts, contributions)

	require.NoError(t, s.Recalculate(context.Background(), 1, true, week(0)))

	payload := store.stored.Records
	highest := payload.Entries[entryRecordKey(types.RecordHighestScore, constant.EntryTypeArtist)]
	require.NotNil(t, highest)
	assert.Equal(t, "a", highest.EntryKey)
}

func TestArgMaxMemberTieBreak(t *testing.T) {
	memberID, value, ok := argMaxMember(map[int64]float64{4: 10, 2: 10, 9: 3})
	require.True(t, ok)
	assert.Equal(t, int64(2), memberID)
	assert.Equal(t, 10.0, value)

	_, _, ok = argMaxMember(nil)
	assert.False(t, ok)
}
