package archwkr

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"github.com/chartloop/backend/internal/app/appconfig"
	"github.com/chartloop/backend/internal/app/appcontext"
	"github.com/chartloop/backend/internal/service"
)

type WorkerDeps struct {
	fx.In
	ArchiveService *service.Archive
}

type Worker struct {
	// count counts batches the worker has completed so far
	count int

	// interval describes the interval in-between different batches of archiving
	interval time.Duration

	WorkerDeps
}

func Start(conf *appconfig.Config, deps WorkerDeps) {
	if conf.AppContext.Env == appcontext.EnvCLI {
		return
	}
	if !conf.ArchiveEnabled {
		log.Info().Msg("archive worker is disabled")
		return
	}
	(&Worker{
		interval:   conf.ArchiveInterval,
		WorkerDeps: deps,
	}).do()
}

func (w *Worker) do() context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			log.Info().
				Int("count", w.count).
				Msg("archive batch started")

			if err := w.ArchiveService.ArchiveExpiredWeeks(ctx); err != nil {
				log.Error().Err(err).Msg("archive batch failed")
			} else {
				log.Info().Int("count", w.count).Msg("archive batch finished")
			}

			w.count++
			time.Sleep(w.interval)
		}
	}()

	return cancel
}

func (w *Worker) Count() int {
	return w.count
}
