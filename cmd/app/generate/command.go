package generate

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	cliapp "github.com/chartloop/backend/cmd/app/cli"
	"github.com/chartloop/backend/internal/service"
)

type CommandDeps struct {
	fx.In

	GenerationService *service.Generation
}

func Command() *cli.Command {
	return &cli.Command{
		Name:        "generate",
		Description: "run one chart generation for a group, bypassing the trigger queue",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "group",
				Usage:    "the id of the group to generate charts for",
				Required: true,
			},
		},
		Action: func(ctx *cli.Context) error {
			var deps CommandDeps
			cliapp.Start(fx.Populate(&deps))

			groupID := ctx.Int64("group")
			log.Info().Int64("groupId", groupID).Msg("running one-off chart generation")

			result, err := deps.GenerationService.Start(ctx.Context, groupID)
			if err != nil {
				return errors.Wrap(err, "failed to run generation")
			}

			log.Info().
				Int("weeksCharted", result.WeeksCharted).
				Ints64("failedMembers", result.FailedMembers).
				Bool("aborted", result.Aborted).
				Msg("generation finished")

			return nil
		},
	}
}
