package service

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/cache"
	"github.com/chartloop/backend/internal/model/types"
)

// VibeWeightBudget is the per-member value budget distributed across a
// member's entries in vs_weighted mode. Every member's contributions for a
// week sum to this constant, so heavy listeners cannot drown out the rest of
// the group by volume alone.
const VibeWeightBudget = 1000.0

// VibeScoreFunc scores one row of a member's weekly history. rank is 1-based
// within that member's own weekly ranking. Implementations must be
// deterministic, strictly decreasing in rank at fixed playcount,
// non-decreasing in playcount at fixed rank, and strictly positive.
type VibeScoreFunc func(rank int, playcount int) float64

// DefaultVibeScore rewards a member's top entries while still letting raw
// volume matter: the log damps runaway playcounts and the rank divisor gives
// the member's own favorites a steep head start. The rank exponent is a
// product-owned constant overridable through the properties table; any
// positive exponent preserves the curve's monotonicity contract.
func DefaultVibeScore(rank int, playcount int) float64 {
	return (1 + math.Log1p(float64(playcount))) / math.Pow(float64(rank), vibeRankExponent())
}

func vibeRankExponent() float64 {
	if raw, ok := cache.Properties[constant.PropertyVibeRankExponent]; ok {
		if exponent, err := strconv.ParseFloat(raw, 64); err == nil && exponent > 0 {
			return exponent
		}
	}
	return 1.0
}

// Scorer turns members' raw weekly stats into per-entry contribution values
// under the group's chart mode.
type Scorer struct {
	vibeScore VibeScoreFunc
}

func NewScorer() *Scorer {
	return &Scorer{vibeScore: DefaultVibeScore}
}

// NewScorerWithVibeFunc allows swapping the vibe scoring curve. fn must
// satisfy the VibeScoreFunc contract.
func NewScorerWithVibeFunc(fn VibeScoreFunc) *Scorer {
	return &Scorer{vibeScore: fn}
}

// ScoreMemberWeek maps one member's raw weekly rows to contribution rows for
// the group's chart mode. Rows with a zero playcount yield no contribution.
func (s *Scorer) ScoreMemberWeek(group *model.Group, stats *types.RawWeeklyStats) ([]*model.MemberEntryContribution, error) {
	// an empty or all-zero week contributes nothing, it is not an error
	if stats.TotalPlays() <= 0 {
		return nil, nil
	}

	contributions := make([]*model.MemberEntryContribution, 0, len(stats.Rows))

	var totalVibe float64
	if group.ChartMode == constant.ChartModeVibeWeight {
		for i, row := range stats.Rows {
			if row.Playcount <= 0 {
				continue
			}
			totalVibe += s.vibeScore(i+1, row.Playcount)
		}
	}

	for i, row := range stats.Rows {
		if row.Playcount <= 0 {
			continue
		}

		var value float64
		switch group.ChartMode {
		case constant.ChartModePlaysOnly:
			value = float64(row.Playcount)
		case constant.ChartModeVibe:
			value = s.vibeScore(i+1, row.Playcount)
		case constant.ChartModeVibeWeight:
			// share of the member's weekly listening, scaled to a fixed budget
			value = s.vibeScore(i+1, row.Playcount) / totalVibe * VibeWeightBudget
		default:
			return nil, errors.Errorf("unknown chart mode %q", group.ChartMode)
		}

		contributions = append(contributions, &model.MemberEntryContribution{
			GroupID:   group.GroupID,
			MemberID:  stats.MemberID,
			WeekStart: stats.WeekStart,
			EntryType: stats.EntryType,
			EntryKey:  row.EntryKey,
			Name:      row.Name,
			Artist:    row.Artist,
			Value:     value,
			Playcount: row.Playcount,
		})
	}

	return contributions, nil
}
