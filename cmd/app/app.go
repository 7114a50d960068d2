package app

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/chartloop/backend/cmd/app/generate"
	"github.com/chartloop/backend/cmd/app/server"
	"github.com/chartloop/backend/internal/pkg/bininfo"
)

func Run() {
	app := &cli.App{
		Name:        "chartloop",
		Description: "The chartloop backend. Aggregates group members' weekly scrobbles into ranked group charts. Built with Go, fiber, bun and go.uber.org/fx. Uses NATS as MQ and Redis as state synchronization.",
		Version:     bininfo.Version,
		Commands: []*cli.Command{
			server.Command(),
			generate.Command(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("failed to run app")
	}
}
