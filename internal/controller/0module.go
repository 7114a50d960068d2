package controller

import (
	"go.uber.org/fx"

	"github.com/chartloop/backend/internal/controller/meta"
	v1 "github.com/chartloop/backend/internal/controller/v1"
)

func Module() fx.Option {
	return fx.Module("controller",
		meta.Module(),
		v1.Module(),
	)
}
