package server

import (
	"context"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"github.com/chartloop/backend/internal/app/appconfig"
	"github.com/chartloop/backend/internal/app/appcontext"
)

// Run binds the fiber app to the fx lifecycle so the listener starts with
// the application and drains on shutdown. One-off CLI invocations share the
// same graph but never bind the listen address.
func Run(app *fiber.App, conf *appconfig.Config, lc fx.Lifecycle) {
	if conf.AppContext.Env == appcontext.EnvCLI {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", conf.ServiceAddress)
			if err != nil {
				return err
			}

			go func() {
				if err := app.Listener(ln); err != nil {
					log.Error().Err(err).Msg("server terminated unexpectedly")
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if conf.DevMode {
				return nil
			}
			return app.Shutdown()
		},
	})
}
