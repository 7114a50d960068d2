package genwkr

import (
	"context"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"github.com/chartloop/backend/internal/app/appconfig"
	"github.com/chartloop/backend/internal/app/appcontext"
	"github.com/chartloop/backend/internal/model/types"
	"github.com/chartloop/backend/internal/pkg/apperr"
	"github.com/chartloop/backend/internal/service"
)

type WorkerDeps struct {
	fx.In
	NatsJS            nats.JetStreamContext
	GenerationService *service.Generation
}

type Worker struct {
	// count is the number of consumers spawned
	count int

	WorkerDeps
}

func Start(conf *appconfig.Config, deps WorkerDeps) {
	// a one-off CLI run drives generation directly, without the queue
	if conf.AppContext.Env == appcontext.EnvCLI {
		return
	}

	ch := make(chan error)
	// handle & dump errors from workers
	go func() {
		for {
			err := <-ch
			if err != nil {
				log.Error().Err(err).Msg("generation worker error")
			}
		}
	}()

	generationWorkers := &Worker{
		WorkerDeps: deps,
	}
	for i := 0; i < conf.GenerationWorkerCount; i++ {
		go func() {
			err := generationWorkers.Consumer(context.Background(), ch)
			if err != nil {
				ch <- err
			}
		}()
		generationWorkers.count += 1
	}
}

func (w *Worker) Consumer(ctx context.Context, ch chan error) error {
	msgChan := make(chan *nats.Msg, 16)

	_, err := w.NatsJS.ChanQueueSubscribe("GENERATE.*", "chartloop-generation", msgChan, nats.AckWait(time.Minute), nats.MaxAckPending(64))
	if err != nil {
		log.Err(err).Msg("failed to subscribe to GENERATE.*")
		return err
	}

	for {
		select {
		case msg := <-msgChan:
			func() {
				// a run may take much longer than the AckWait; keep the
				// message alive while it does
				inprogressInformer := time.AfterFunc(time.Second*30, func() {
					if err := msg.InProgress(); err != nil {
						log.Error().Err(err).Msg("failed to set msg InProgress")
					}
				})
				defer func() {
					inprogressInformer.Stop()
					if err := msg.Ack(); err != nil {
						log.Error().Err(err).Msg("failed to ack")
					}
				}()

				task := &types.GenerationTask{}
				if err := json.Unmarshal(msg.Data, task); err != nil {
					ch <- err
					return
				}

				if err := w.consumeTask(ctx, task); err != nil {
					ch <- err
				}
			}()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) consumeTask(ctx context.Context, task *types.GenerationTask) error {
	L := log.With().
		Str("taskId", task.TaskID).
		Int64("groupId", task.GroupID).
		Logger()

	L.Info().Msg("now processing generation task")

	result, err := w.GenerationService.Start(ctx, task.GroupID)
	if err != nil {
		// a concurrent run holding the lease is a valid outcome of a
		// duplicate trigger, not a worker failure
		if errors.Is(err, apperr.ErrAlreadyGenerating) {
			L.Info().Msg("generation already in progress, dropping task")
			return nil
		}
		L.Error().
			Err(err).
			Str("generationTask", spew.Sdump(task)).
			Msg("failed to process generation task")
		return errors.Wrapf(err, "task %s", task.TaskID)
	}

	L.Info().
		Int("weeksCharted", result.WeeksCharted).
		Ints64("failedMembers", result.FailedMembers).
		Bool("aborted", result.Aborted).
		Msg("generation task processed")
	return nil
}
