package service

import (
	"context"
	"strconv"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/model/cache"
	"github.com/chartloop/backend/internal/pkg/apperr"
	"github.com/chartloop/backend/internal/repo"
)

// AttributionStore is the persistence surface of the major-driver cache.
// *repo.EntryAttribution satisfies it.
type AttributionStore interface {
	GetByEntry(ctx context.Context, groupID int64, entryType string, entryKey string) (*model.EntryAttribution, error)
	UpsertAttribution(ctx context.Context, attribution *model.EntryAttribution) error
	InvalidateByEntries(ctx context.Context, groupID int64, entryType string, entryKeys []string) error
	InvalidateByMember(ctx context.Context, groupID int64, memberID int64) error
}

// ContributionScanner provides the aggregate scan that recomputes a driver.
// *repo.MemberEntryContribution satisfies it.
type ContributionScanner interface {
	SumByMemberForEntry(ctx context.Context, groupID int64, entryType string, entryKey string) ([]*model.MemberEntrySum, error)
}

type Attribution struct {
	store   AttributionStore
	scanner ContributionScanner
}

func NewAttribution(entryAttributionRepo *repo.EntryAttribution, memberEntryContributionRepo *repo.MemberEntryContribution) *Attribution {
	return &Attribution{
		store:   entryAttributionRepo,
		scanner: memberEntryContributionRepo,
	}
}

// DriverFor returns the member with the largest cumulative contribution to
// the entry, recomputing lazily when the stored attribution has been
// invalidated. The returned attribution is always valid; an entry nobody
// ever contributed to yields a null driver.
func (s *Attribution) DriverFor(ctx context.Context, groupID int64, entryType string, entryKey string) (*model.EntryAttribution, error) {
	key := driverCacheKey(groupID, entryType, entryKey)

	var cached model.EntryAttribution
	if err := cache.MajorDriver.Get(key, &cached); err == nil && cached.Valid() {
		return &cached, nil
	}

	stored, err := s.store.GetByEntry(ctx, groupID, entryType, entryKey)
	if err != nil && err != apperr.ErrNotFound {
		return nil, err
	}
	if stored.Valid() {
		cache.MajorDriver.Set(key, *stored, time.Minute*10)
		return stored, nil
	}

	recomputed, err := s.recompute(ctx, groupID, entryType, entryKey)
	if err != nil {
		return nil, err
	}

	cache.MajorDriver.Set(key, *recomputed, time.Minute*10)
	return recomputed, nil
}

func (s *Attribution) recompute(ctx context.Context, groupID int64, entryType string, entryKey string) (*model.EntryAttribution, error) {
	sums, err := s.scanner.SumByMemberForEntry(ctx, groupID, entryType, entryKey)
	if err != nil {
		return nil, err
	}

	attribution := &model.EntryAttribution{
		GroupID:        groupID,
		EntryType:      entryType,
		EntryKey:       entryKey,
		LastComputedAt: null.TimeFrom(time.Now()),
	}
	// sums arrive ordered by total descending with member id breaking ties,
	// so the first row is the driver
	if len(sums) > 0 {
		attribution.MajorDriverMemberID = null.IntFrom(sums[0].MemberID)
		attribution.MajorDriverValue = sums[0].Total
	}

	if err := s.store.UpsertAttribution(ctx, attribution); err != nil {
		return nil, err
	}
	return attribution, nil
}

// Touch invalidates the attributions for every entry a regenerated week
// touched. The recompute happens on the next read, not here.
func (s *Attribution) Touch(ctx context.Context, groupID int64, entryType string, entryKeys []string) error {
	if err := s.store.InvalidateByEntries(ctx, groupID, entryType, entryKeys); err != nil {
		return err
	}
	for _, entryKey := range entryKeys {
		cache.MajorDriver.Delete(driverCacheKey(groupID, entryType, entryKey))
	}
	return nil
}

// InvalidateMember drops every attribution crediting a departed member.
func (s *Attribution) InvalidateMember(ctx context.Context, groupID int64, memberID int64) error {
	if err := s.store.InvalidateByMember(ctx, groupID, memberID); err != nil {
		return err
	}
	// member-scoped invalidation cannot name the affected keys up front
	return cache.MajorDriver.Flush()
}

func driverCacheKey(groupID int64, entryType string, entryKey string) string {
	return strconv.FormatInt(groupID, 10) + constant.CacheSep + entryType + constant.CacheSep + entryKey
}
