package service

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redsync/redsync/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/chartloop/backend/internal/app/appconfig"
	"github.com/chartloop/backend/internal/pkg/archiver"
	"github.com/chartloop/backend/internal/pkg/chartweek"
	"github.com/chartloop/backend/internal/repo"
)

const (
	RealmMemberWeeklyStats = "member_weekly_stats"

	ArchiveS3Prefix = "v1/"
)

// Archive moves member weekly stats past the retention horizon to S3 and
// deletes them from the database. Archived weeks remain re-derivable from
// the scrobbling provider, so a lost archive costs a refetch, not data.
type Archive struct {
	MemberWeeklyStatsRepo *repo.MemberWeeklyStats
	Config                *appconfig.Config

	lock *redsync.Mutex

	statsArchiver *archiver.Archiver
}

func NewArchive(memberWeeklyStatsRepo *repo.MemberWeeklyStats, conf *appconfig.Config, lock *redsync.Redsync, s3Client *s3.Client) *Archive {
	return &Archive{
		MemberWeeklyStatsRepo: memberWeeklyStatsRepo,
		Config:                conf,
		lock:                  lock.NewMutex("mutex:archiver", redsync.WithExpiry(30*time.Minute), redsync.WithTries(1)),
		statsArchiver: &archiver.Archiver{
			S3Client:  s3Client,
			S3Bucket:  conf.StatsArchiveS3Bucket,
			S3Prefix:  ArchiveS3Prefix,
			RealmName: RealmMemberWeeklyStats,
		},
	}
}

// ArchiveExpiredWeeks archives every stored week past the retention horizon.
func (s *Archive) ArchiveExpiredWeeks(ctx context.Context) error {
	cutoff := chartweek.Start(time.Now(), 0).AddDate(0, 0, -7*s.Config.StatsRetentionWeeks)

	if err := s.lock.Lock(); err != nil {
		return errors.Wrap(err, "failed to acquire lock")
	}
	defer s.lock.Unlock()

	weekStarts, err := s.MemberWeeklyStatsRepo.GetWeekStartsOlderThan(ctx, cutoff)
	if err != nil {
		return errors.Wrap(err, "failed to list expired weeks")
	}
	if len(weekStarts) == 0 {
		return nil
	}

	for _, weekStart := range weekStarts {
		if err := s.archiveWeek(ctx, weekStart); err != nil {
			return errors.Wrapf(err, "failed to archive week %s", weekStart.UTC().Format(chartweek.KeyFormat))
		}
	}
	return nil
}

func (s *Archive) archiveWeek(ctx context.Context, weekStart time.Time) error {
	if err := s.statsArchiver.Prepare(ctx, weekStart); err != nil {
		if errors.Is(err, archiver.ErrFileAlreadyExists) {
			log.Info().
				Str("evt.name", "archive.member_weekly_stats").
				Time("weekStart", weekStart).
				Msg("already archived, deleting local rows only")
			return s.MemberWeeklyStatsRepo.DeleteStatsForWeek(ctx, weekStart)
		}
		return errors.Wrap(err, "failed to prepare archiver")
	}

	eg := errgroup.Group{}
	eg.Go(func() error {
		return s.statsArchiver.Collect(ctx)
	})

	if err := s.populateStatsToArchiver(ctx, weekStart); err != nil {
		return errors.Wrap(err, "failed to populate stats")
	}

	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "failed to collect archive")
	}

	log.Info().
		Str("evt.name", "archive.member_weekly_stats").
		Time("weekStart", weekStart).
		Msg("archived week, deleting rows")
	return s.MemberWeeklyStatsRepo.DeleteStatsForWeek(ctx, weekStart)
}

func (s *Archive) populateStatsToArchiver(ctx context.Context, weekStart time.Time) error {
	ch := s.statsArchiver.WriterCh()
	defer close(ch)

	stats, err := s.MemberWeeklyStatsRepo.GetStatsForWeek(ctx, weekStart)
	if err != nil {
		return errors.Wrap(err, "failed to extract stats")
	}

	log.Info().
		Str("evt.name", "archive.populate.member_weekly_stats").
		Time("weekStart", weekStart).
		Int("count", len(stats)).
		Msg("got member weekly stats")

	for _, row := range stats {
		ch <- row
	}
	return nil
}
