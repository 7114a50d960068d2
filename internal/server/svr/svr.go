package svr

import (
	"github.com/gofiber/fiber/v2"
)

// Meta holds operational endpoints (index, health, metrics-adjacent).
type Meta struct {
	fiber.Router
}

// V1 holds the versioned public API surface.
type V1 struct {
	fiber.Router
}

func CreateEndpointGroups(app *fiber.App) (*Meta, *V1) {
	meta := app.Group("/")
	v1 := app.Group("/api/v1")

	return &Meta{Router: meta}, &V1{Router: v1}
}
