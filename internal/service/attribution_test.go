package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/pkg/apperr"
)

type fakeAttributionStore struct {
	rows map[string]*model.EntryAttribution

	upserts             int
	invalidatedEntries  []string
	invalidatedMemberID int64
}

func newFakeAttributionStore() *fakeAttributionStore {
	return &fakeAttributionStore{rows: map[string]*model.EntryAttribution{}}
}

func (s *fakeAttributionStore) GetByEntry(_ context.Context, groupID int64, entryType string, entryKey string) (*model.EntryAttribution, error) {
	row, ok := s.rows[entryType+"|"+entryKey]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return row, nil
}

func (s *fakeAttributionStore) UpsertAttribution(_ context.Context, attribution *model.EntryAttribution) error {
	s.upserts++
	s.rows[attribution.EntryType+"|"+attribution.EntryKey] = attribution
	return nil
}

func (s *fakeAttributionStore) InvalidateByEntries(_ context.Context, groupID int64, entryType string, entryKeys []string) error {
	for _, key := range entryKeys {
		s.invalidatedEntries = append(s.invalidatedEntries, entryType+"|"+key)
		if row, ok := s.rows[entryType+"|"+key]; ok {
			row.LastComputedAt = null.Time{}
		}
	}
	return nil
}

func (s *fakeAttributionStore) InvalidateByMember(_ context.Context, groupID int64, memberID int64) error {
	s.invalidatedMemberID = memberID
	for _, row := range s.rows {
		if row.MajorDriverMemberID.Valid && row.MajorDriverMemberID.Int64 == memberID {
			row.LastComputedAt = null.Time{}
		}
	}
	return nil
}

type fakeContributionScanner struct {
	sums  map[string][]*model.MemberEntrySum
	scans int
}

func (s *fakeContributionScanner) SumByMemberForEntry(_ context.Context, groupID int64, entryType string, entryKey string) ([]*model.MemberEntrySum, error) {
	s.scans++
	return s.sums[entryType+"|"+entryKey], nil
}

func TestDriverForRecomputesAndPersists(t *testing.T) {
	store := newFakeAttributionStore()
	scanner := &fakeContributionScanner{sums: map[string][]*model.MemberEntrySum{
		"artist|artist-x": {
			{MemberID: 2, Total: 21.0},
			{MemberID: 5, Total: 6.0},
		},
	}}
	s := &Attribution{store: store, scanner: scanner}
	ctx := context.Background()

	driver, err := s.DriverFor(ctx, 1, constant.EntryTypeArtist, "artist-x")
	require.NoError(t, err)

	assert.True(t, driver.Valid())
	assert.Equal(t, null.IntFrom(2), driver.MajorDriverMemberID)
	assert.Equal(t, 21.0, driver.MajorDriverValue)
	assert.Equal(t, 1, store.upserts)
	assert.Equal(t, 1, scanner.scans)

	// the second read serves the cached row, no rescan
	again, err := s.DriverFor(ctx, 1, constant.EntryTypeArtist, "artist-x")
	require.NoError(t, err)
	assert.Equal(t, driver.MajorDriverMemberID, again.MajorDriverMemberID)
	assert.Equal(t, 1, scanner.scans)
}

func TestDriverForNoContributionsYieldsNullDriver(t *testing.T) {
	store := newFakeAttributionStore()
	scanner := &fakeContributionScanner{sums: map[string][]*model.MemberEntrySum{}}
	s := &Attribution{store: store, scanner: scanner}

	driver, err := s.DriverFor(context.Background(), 1, constant.EntryTypeTrack, "nobody-played-this")
	require.NoError(t, err)

	assert.True(t, driver.Valid())
	assert.False(t, driver.MajorDriverMemberID.Valid)
	assert.Zero(t, driver.MajorDriverValue)
}

func TestTouchForcesRecomputeOnNextRead(t *testing.T) {
	store := newFakeAttributionStore()
	scanner := &fakeContributionScanner{sums: map[string][]*model.MemberEntrySum{
		"artist|artist-y": {{MemberID: 3, Total: 9.0}},
	}}
	s := &Attribution{store: store, scanner: scanner}
	ctx := context.Background()

	_, err := s.DriverFor(ctx, 1, constant.EntryTypeArtist, "artist-y")
	require.NoError(t, err)
	require.Equal(t, 1, scanner.scans)

	require.NoError(t, s.Touch(ctx, 1, constant.EntryTypeArtist, []string{"artist-y"}))
	assert.Contains(t, store.invalidatedEntries, "artist|artist-y")

	// the stored row is invalid now, so the read rescans
	scanner.sums["artist|artist-y"] = []*model.MemberEntrySum{{MemberID: 8, Total: 30.0}}
	driver, err := s.DriverFor(ctx, 1, constant.EntryTypeArtist, "artist-y")
	require.NoError(t, err)
	assert.Equal(t, 2, scanner.scans)
	assert.Equal(t, null.IntFrom(8), driver.MajorDriverMemberID)
}

func TestInvalidateMember(t *testing.T) {
	store := newFakeAttributionStore()
	scanner := &fakeContributionScanner{sums: map[string][]*model.MemberEntrySum{
		"track|track-z": {{MemberID: 4, Total: 12.0}},
	}}
	s := &Attribution{store: store, scanner: scanner}
	ctx := context.Background()

	driver, err := s.DriverFor(ctx, 1, constant.EntryTypeTrack, "track-z")
	require.NoError(t, err)
	require.Equal(t, null.IntFrom(4), driver.MajorDriverMemberID)

	require.NoError(t, s.InvalidateMember(ctx, 1, 4))
	assert.Equal(t, int64(4), store.invalidatedMemberID)

	scanner.sums["track|track-z"] = []*model.MemberEntrySum{{MemberID: 6, Total: 2.0}}
	driver, err = s.DriverFor(ctx, 1, constant.EntryTypeTrack, "track-z")
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(6), driver.MajorDriverMemberID)
}
