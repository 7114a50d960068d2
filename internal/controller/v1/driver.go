package v1

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"

	"github.com/chartloop/backend/internal/pkg/apperr"
	"github.com/chartloop/backend/internal/server/svr"
	"github.com/chartloop/backend/internal/service"
)

type Driver struct {
	fx.In

	AttributionService *service.Attribution
}

func RegisterDriver(v1 *svr.V1, c Driver) {
	v1.Get("/groups/:groupId/drivers/:entryType/:entryKey", c.GetDriver)
}

func (c *Driver) GetDriver(ctx *fiber.Ctx) error {
	groupID, err := parseGroupID(ctx)
	if err != nil {
		return err
	}
	entryType, err := parseEntryType(ctx)
	if err != nil {
		return err
	}
	entryKey := strings.TrimSpace(ctx.Params("entryKey"))
	if entryKey == "" {
		return apperr.ErrInvalidReq.Msg("invalid or missing entryKey")
	}

	attribution, err := c.AttributionService.DriverFor(ctx.UserContext(), groupID, entryType, entryKey)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"majorDriverMemberId": attribution.MajorDriverMemberID,
		"majorDriverValue":    attribution.MajorDriverValue,
		"lastComputedAt":      attribution.LastComputedAt,
	})
}
