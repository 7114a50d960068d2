package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	linq "github.com/ahmetb/go-linq/v3"
	"gopkg.in/guregu/null.v3"

	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/cache"
	"github.com/chartloop/backend/internal/pkg/chartweek"
	"github.com/chartloop/backend/internal/repo"
)

// ChartEntryStore is the persistence surface of the aggregator.
// *repo.ChartEntry satisfies it.
type ChartEntryStore interface {
	BatchSaveEntries(ctx context.Context, entries []*model.ChartEntry) error
	DeleteByGroupWeekAndType(ctx context.Context, groupID int64, weekStart time.Time, entryType string) error
	GetChart(ctx context.Context, groupID int64, weekStart time.Time, entryType string) ([]*model.ChartEntry, error)
	GetEverChartedKeys(ctx context.Context, groupID int64, entryType string, before time.Time) (map[string]struct{}, error)
	GetLatestWeekStart(ctx context.Context, groupID int64) (time.Time, error)
}

type Chart struct {
	store ChartEntryStore
}

func NewChart(chartEntryRepo *repo.ChartEntry) *Chart {
	return &Chart{store: chartEntryRepo}
}

type entryAccumulator struct {
	entryKey  string
	name      string
	artist    null.String
	value     float64
	playcount int
}

// BuildWeek folds one week's contributions into ranked chart entries.
// Entries sort by total value descending with entry key ascending as the
// tie-break, and positions are dense from 1. prevEntries is the immediately
// preceding week's chart (nil when absent) and everCharted holds every key
// that appeared on any earlier chart; together they classify each entry as
// continuing, re-entry or new.
func (s *Chart) BuildWeek(
	group *model.Group,
	weekStart time.Time,
	entryType string,
	contributions []*model.MemberEntryContribution,
	prevEntries []*model.ChartEntry,
	everCharted map[string]struct{},
) []*model.ChartEntry {
	grouped := make(map[string]*entryAccumulator)
	linq.From(contributions).ForEachT(func(c *model.MemberEntryContribution) {
		acc, ok := grouped[c.EntryKey]
		if !ok {
			acc = &entryAccumulator{
				entryKey: c.EntryKey,
				name:     c.Name,
				artist:   c.Artist,
			}
			grouped[c.EntryKey] = acc
		}
		acc.value += c.Value
		acc.playcount += c.Playcount
	})

	ranked := make([]*entryAccumulator, 0, len(grouped))
	for _, acc := range grouped {
		ranked = append(ranked, acc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].value != ranked[j].value {
			return ranked[i].value > ranked[j].value
		}
		return ranked[i].entryKey < ranked[j].entryKey
	})
	if len(ranked) > group.ChartSize {
		ranked = ranked[:group.ChartSize]
	}

	prevPositions := make(map[string]int, len(prevEntries))
	for _, prev := range prevEntries {
		prevPositions[prev.EntryKey] = prev.Position
	}

	entries := make([]*model.ChartEntry, 0, len(ranked))
	for i, acc := range ranked {
		entry := &model.ChartEntry{
			GroupID:   group.GroupID,
			WeekStart: weekStart,
			EntryType: entryType,
			Position:  i + 1,
			EntryKey:  acc.entryKey,
			Name:      acc.name,
			Artist:    acc.artist,
			Playcount: acc.playcount,
		}
		if group.ChartMode != constant.ChartModePlaysOnly {
			entry.Score = null.FloatFrom(acc.value)
		}

		if prevPosition, ok := prevPositions[acc.entryKey]; ok {
			entry.PositionChange = null.IntFrom(int64(entry.Position - prevPosition))
			entry.Lifecycle = constant.LifecycleContinuing
		} else if _, ok := everCharted[acc.entryKey]; ok {
			entry.Lifecycle = constant.LifecycleReEntry
		} else {
			entry.Lifecycle = constant.LifecycleNew
		}

		entries = append(entries, entry)
	}

	return entries
}

// SaveWeek builds and persists one week's chart, replacing any chart a
// previous run left for the same (group, week, type).
func (s *Chart) SaveWeek(ctx context.Context, group *model.Group, weekStart time.Time, entryType string, contributions []*model.MemberEntryContribution) ([]*model.ChartEntry, error) {
	prevEntries, err := s.store.GetChart(ctx, group.GroupID, weekStart.AddDate(0, 0, -7), entryType)
	if err != nil {
		return nil, err
	}
	everCharted, err := s.store.GetEverChartedKeys(ctx, group.GroupID, entryType, weekStart)
	if err != nil {
		return nil, err
	}

	entries := s.BuildWeek(group, weekStart, entryType, contributions, prevEntries, everCharted)

	if err := s.store.DeleteByGroupWeekAndType(ctx, group.GroupID, weekStart, entryType); err != nil {
		return nil, err
	}
	if err := s.store.BatchSaveEntries(ctx, entries); err != nil {
		return nil, err
	}

	cache.Chart.Delete(chartCacheKey(group.GroupID, weekStart, entryType))
	return entries, nil
}

// GetChart serves one stored weekly chart through the shared cache.
func (s *Chart) GetChart(ctx context.Context, groupID int64, weekStart time.Time, entryType string) ([]*model.ChartEntry, error) {
	var entries []*model.ChartEntry
	key := chartCacheKey(groupID, weekStart, entryType)
	_, err := cache.Chart.MutexGetSet(key, &entries, func() ([]*model.ChartEntry, error) {
		return s.store.GetChart(ctx, groupID, weekStart, entryType)
	}, time.Minute*10)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// LatestChartedWeek returns the group's most recent charted week start, or a
// zero time for a group that has never been charted.
func (s *Chart) LatestChartedWeek(ctx context.Context, groupID int64) (time.Time, error) {
	return s.store.GetLatestWeekStart(ctx, groupID)
}

// GetLatestChart resolves the group's most recent charted week first.
func (s *Chart) GetLatestChart(ctx context.Context, groupID int64, entryType string) ([]*model.ChartEntry, time.Time, error) {
	latest, err := s.store.GetLatestWeekStart(ctx, groupID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if latest.IsZero() {
		return nil, time.Time{}, nil
	}
	entries, err := s.GetChart(ctx, groupID, latest, entryType)
	if err != nil {
		return nil, time.Time{}, err
	}
	return entries, latest, nil
}

func chartCacheKey(groupID int64, weekStart time.Time, entryType string) string {
	return strconv.FormatInt(groupID, 10) + constant.CacheSep + weekStart.UTC().Format(chartweek.KeyFormat) + constant.CacheSep + entryType
}
