package server

import (
	"github.com/urfave/cli/v2"

	appbuild "github.com/chartloop/backend/internal/app"
	"github.com/chartloop/backend/internal/app/appcontext"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "start server and workers",
		Action: func(c *cli.Context) error {
			appbuild.New(appcontext.Declare(appcontext.EnvServer)).Run()
			return nil
		},
	}
}
