package httpserver

import (
	"strconv"

	"github.com/gofiber/contrib/fibersentry"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/chartloop/backend/internal/pkg/apperr"
)

func HandleCustomError(ctx *fiber.Ctx, e *apperr.Error) error {
	log.Warn().
		Err(e).
		Str("method", ctx.Method()).
		Str("path", ctx.Path()).
		Msg(e.Message)

	body := fiber.Map{
		"code":    e.ErrorCode,
		"message": e.Message,
	}

	if e.Extras != nil && len(*e.Extras) > 0 {
		for k, v := range *e.Extras {
			body[k] = v
		}
	}

	return ctx.Status(e.StatusCode).JSON(body)
}

func ErrorHandler(ctx *fiber.Ctx, err error) error {
	if e, ok := err.(*apperr.Error); ok {
		return HandleCustomError(ctx, e)
	}

	// default 500 statuscode
	re := apperr.ErrInternalError

	if e, ok := err.(*fiber.Error); ok {
		// overwrite status code if fiber.Error type & provided code;
		// work on a copy so the shared sentinel stays untouched
		c := *apperr.ErrInternalError
		c.StatusCode = e.Code
		c.ErrorCode = "UNKNOWN_ERROR"
		c.Message = e.Message
		re = &c
	}

	log.Error().
		Stack().
		Err(err).
		Str("method", ctx.Method()).
		Str("path", ctx.Path()).
		Int("status", re.StatusCode).
		Msg("Internal Server Error")

	if hub := fibersentry.GetHubFromContext(ctx); hub != nil {
		hub.Scope().SetTag("status", strconv.Itoa(re.StatusCode))
		hub.CaptureException(err)
	}

	return HandleCustomError(ctx, re)
}
