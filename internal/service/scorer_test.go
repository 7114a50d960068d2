package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/model"
	modelcache "github.com/chartloop/backend/internal/model/cache"
	"github.com/chartloop/backend/internal/model/types"
)

func statsWith(rows ...types.StatsRow) *types.RawWeeklyStats {
	return &types.RawWeeklyStats{
		MemberID:  7,
		WeekStart: time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC),
		EntryType: constant.EntryTypeArtist,
		Rows:      rows,
	}
}

func groupWithMode(mode string) *model.Group {
	return &model.Group{GroupID: 1, ChartMode: mode, ChartSize: 10}
}

func TestScorePlaysOnly(t *testing.T) {
	s := NewScorer()

	contributions, err := s.ScoreMemberWeek(groupWithMode(constant.ChartModePlaysOnly), statsWith(
		types.StatsRow{EntryKey: "artist-x", Name: "Artist X", Playcount: 15},
		types.StatsRow{EntryKey: "artist-y", Name: "Artist Y", Playcount: 3},
	))
	require.NoError(t, err)
	require.Len(t, contributions, 2)

	assert.Equal(t, 15.0, contributions[0].Value)
	assert.Equal(t, 15, contributions[0].Playcount)
	assert.Equal(t, 3.0, contributions[1].Value)

	assert.Equal(t, int64(7), contributions[0].MemberID)
	assert.Equal(t, constant.EntryTypeArtist, contributions[0].EntryType)
}

func TestScoreVibeRanksBeatVolume(t *testing.T) {
	s := NewScorer()

	// the member's own #1 with few plays still outscores a lower-ranked
	// entry with the same playcount
	contributions, err := s.ScoreMemberWeek(groupWithMode(constant.ChartModeVibe), statsWith(
		types.StatsRow{EntryKey: "a", Playcount: 10},
		types.StatsRow{EntryKey: "b", Playcount: 10},
		types.StatsRow{EntryKey: "c", Playcount: 10},
	))
	require.NoError(t, err)
	require.Len(t, contributions, 3)

	assert.Greater(t, contributions[0].Value, contributions[1].Value)
	assert.Greater(t, contributions[1].Value, contributions[2].Value)
}

func TestScoreVibeWeightedSumsToBudget(t *testing.T) {
	s := NewScorer()

	contributions, err := s.ScoreMemberWeek(groupWithMode(constant.ChartModeVibeWeight), statsWith(
		types.StatsRow{EntryKey: "a", Playcount: 200},
		types.StatsRow{EntryKey: "b", Playcount: 40},
		types.StatsRow{EntryKey: "c", Playcount: 1},
	))
	require.NoError(t, err)
	require.Len(t, contributions, 3)

	var total float64
	for _, c := range contributions {
		assert.Positive(t, c.Value)
		total += c.Value
	}
	assert.InDelta(t, VibeWeightBudget, total, 1e-9)
}

func TestScoreSkipsZeroPlaycountRows(t *testing.T) {
	s := NewScorer()

	for _, mode := range []string{constant.ChartModePlaysOnly, constant.ChartModeVibe, constant.ChartModeVibeWeight} {
		contributions, err := s.ScoreMemberWeek(groupWithMode(mode), statsWith(
			types.StatsRow{EntryKey: "a", Playcount: 5},
			types.StatsRow{EntryKey: "b", Playcount: 0},
		))
		require.NoError(t, err, mode)
		require.Len(t, contributions, 1, mode)
		assert.Equal(t, "a", contributions[0].EntryKey, mode)
	}
}

func TestScoreEmptyWeekContributesNothing(t *testing.T) {
	s := NewScorer()

	for _, mode := range []string{constant.ChartModePlaysOnly, constant.ChartModeVibe, constant.ChartModeVibeWeight} {
		contributions, err := s.ScoreMemberWeek(groupWithMode(mode), statsWith())
		require.NoError(t, err, mode)
		assert.Empty(t, contributions, mode)

		contributions, err = s.ScoreMemberWeek(groupWithMode(mode), statsWith(
			types.StatsRow{EntryKey: "a", Playcount: 0},
		))
		require.NoError(t, err, mode)
		assert.Empty(t, contributions, mode)
	}
}

func TestScoreUnknownModeFails(t *testing.T) {
	s := NewScorer()

	_, err := s.ScoreMemberWeek(groupWithMode("bogus"), statsWith(
		types.StatsRow{EntryKey: "a", Playcount: 5},
	))
	assert.Error(t, err)
}

func TestDefaultVibeScoreContract(t *testing.T) {
	// strictly decreasing in rank at fixed playcount
	for rank := 1; rank < 50; rank++ {
		assert.Greater(t, DefaultVibeScore(rank, 10), DefaultVibeScore(rank+1, 10))
	}
	// non-decreasing in playcount at fixed rank
	for playcount := 1; playcount < 50; playcount++ {
		assert.GreaterOrEqual(t, DefaultVibeScore(3, playcount+1), DefaultVibeScore(3, playcount))
	}
	// strictly positive
	assert.Positive(t, DefaultVibeScore(100, 1))
}

func TestVibeRankExponentProperty(t *testing.T) {
	defer func() { modelcache.Properties = nil }()

	modelcache.Properties = map[string]string{constant.PropertyVibeRankExponent: "2"}
	assert.InDelta(t, DefaultVibeScore(1, 10)/4, DefaultVibeScore(2, 10), 1e-9)

	// malformed or non-positive values fall back to the default curve
	modelcache.Properties = map[string]string{constant.PropertyVibeRankExponent: "nope"}
	assert.InDelta(t, DefaultVibeScore(1, 10)/2, DefaultVibeScore(2, 10), 1e-9)

	modelcache.Properties = map[string]string{constant.PropertyVibeRankExponent: "-1"}
	assert.InDelta(t, DefaultVibeScore(1, 10)/2, DefaultVibeScore(2, 10), 1e-9)
}
