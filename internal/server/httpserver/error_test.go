package httpserver

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartloop/backend/internal/pkg/apperr"
)

func TestErrorHandlerKeepsSharedSentinelIntact(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "no such thing")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	assert.Equal(t, fiber.StatusInternalServerError, apperr.ErrInternalError.StatusCode)
	assert.Equal(t, apperr.CodeInternalError, apperr.ErrInternalError.ErrorCode)
}

func TestErrorHandlerPassesThroughAppErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/invalid", func(c *fiber.Ctx) error {
		return apperr.ErrInvalidReq
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/invalid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
