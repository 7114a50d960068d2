package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/model"
)

func contribution(memberID int64, key, name string, value float64, playcount int) *model.MemberEntryContribution {
	return &model.MemberEntryContribution{
		GroupID:   1,
		MemberID:  memberID,
		EntryType: constant.EntryTypeArtist,
		EntryKey:  key,
		Name:      name,
		Value:     value,
		Playcount: playcount,
	}
}

func TestBuildWeekRankingAndLifecycle(t *testing.T) {
	s := &Chart{}
	group := &model.Group{GroupID: 1, ChartSize: 10, ChartMode: constant.ChartModePlaysOnly}
	week := time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)

	// two members both played Artist X; only one played Artist Y
	entries := s.BuildWeek(group, week, constant.EntryTypeArtist, []*model.MemberEntryContribution{
		contribution(1, "artist-x", "Artist X", 15, 15),
		contribution(2, "artist-x", "Artist X", 6, 6),
		contribution(1, "artist-y", "Artist Y", 3, 3),
	}, nil, nil)

	require.Len(t, entries, 2)

	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, "artist-x", entries[0].EntryKey)
	assert.Equal(t, 21, entries[0].Playcount)
	assert.Equal(t, constant.LifecycleNew, entries[0].Lifecycle)
	assert.False(t, entries[0].PositionChange.Valid)

	assert.Equal(t, 2, entries[1].Position)
	assert.Equal(t, "artist-y", entries[1].EntryKey)
	assert.Equal(t, constant.LifecycleNew, entries[1].Lifecycle)

	// plays_only charts never expose a score
	assert.False(t, entries[0].Score.Valid)
}

func TestBuildWeekPositionChangeAndContinuing(t *testing.T) {
	s := &Chart{}
	group := &model.Group{GroupID: 1, ChartSize: 10, ChartMode: constant.ChartModePlaysOnly}
	week := time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC)

	prev := []*model.ChartEntry{
		{EntryKey: "artist-x", Position: 1},
		{EntryKey: "artist-y", Position: 2},
	}
	everCharted := map[string]struct{}{"artist-x": {}, "artist-y": {}}

	// only Artist X survived into this week
	entries := s.BuildWeek(group, week, constant.EntryTypeArtist, []*model.MemberEntryContribution{
		contribution(1, "artist-x", "Artist X", 4, 4),
	}, prev, everCharted)

	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, constant.LifecycleContinuing, entries[0].Lifecycle)
	assert.Equal(t, null.IntFrom(0), entries[0].PositionChange)
}

func TestBuildWeekReEntry(t *testing.T) {
	s := &Chart{}
	group := &model.Group{GroupID: 1, ChartSize: 10, ChartMode: constant.ChartModePlaysOnly}
	week := time.Date(2023, 6, 19, 0, 0, 0, 0, time.UTC)

	// Artist Y charted some weeks ago but not last week
	everCharted := map[string]struct{}{"artist-x": {}, "artist-y": {}}
	prev := []*model.ChartEntry{{EntryKey: "artist-x", Position: 1}}

	entries := s.BuildWeek(group, week, constant.EntryTypeArtist, []*model.MemberEntryContribution{
		contribution(1, "artist-x", "Artist X", 9, 9),
		contribution(1, "artist-y", "Artist Y", 5, 5),
	}, prev, everCharted)

	require.Len(t, entries, 2)
	assert.Equal(t, constant.LifecycleContinuing, entries[0].Lifecycle)

	assert.Equal(t, "artist-y", entries[1].EntryKey)
	assert.Equal(t, constant.LifecycleReEntry, entries[1].Lifecycle)
	assert.False(t, entries[1].PositionChange.Valid)
}

func TestBuildWeekTieBreakByEntryKey(t *testing.T) {
	s := &Chart{}
	group := &model.Group{GroupID: 1, ChartSize: 10, ChartMode: constant.ChartModePlaysOnly}
	week := time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)

	entries := s.BuildWeek(group, week, constant.EntryTypeArtist, []*model.MemberEntryContribution{
		contribution(1, "bbb", "B", 5, 5),
		contribution(1, "aaa", "A", 5, 5),
		contribution(1, "ccc", "C", 5, 5),
	}, nil, nil)

	require.Len(t, entries, 3)
	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, []string{entries[0].EntryKey, entries[1].EntryKey, entries[2].EntryKey})
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
	}
}

func TestBuildWeekTruncatesToChartSize(t *testing.T) {
	s := &Chart{}
	group := &model.Group{GroupID: 1, ChartSize: 10, ChartMode: constant.ChartModeVibe}
	week := time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)

	contributions := make([]*model.MemberEntryContribution, 0, 25)
	for i := 0; i < 25; i++ {
		key := string(rune('a' + i))
		contributions = append(contributions, contribution(1, key, key, float64(100-i), 100-i))
	}

	entries := s.BuildWeek(group, week, constant.EntryTypeArtist, contributions, nil, nil)

	require.Len(t, entries, group.ChartSize)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, group.ChartSize, entries[len(entries)-1].Position)

	// vibe charts expose the summed score
	assert.True(t, entries[0].Score.Valid)
	assert.Equal(t, 100.0, entries[0].Score.Float64)
}
