package v1

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"

	"github.com/chartloop/backend/internal/server/svr"
	"github.com/chartloop/backend/internal/service"
)

type Records struct {
	fx.In

	RecordsService *service.Records
}

func RegisterRecords(v1 *svr.V1, c Records) {
	v1.Get("/groups/:groupId/records", c.GetRecords)
}

func (c *Records) GetRecords(ctx *fiber.Ctx) error {
	groupID, err := parseGroupID(ctx)
	if err != nil {
		return err
	}

	records, err := c.RecordsService.GetRecords(ctx.UserContext(), groupID)
	if err != nil {
		return err
	}

	return ctx.JSON(records)
}
