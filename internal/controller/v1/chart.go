package v1

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"

	"github.com/chartloop/backend/internal/constant"
	"github.com/chartloop/backend/internal/pkg/apperr"
	"github.com/chartloop/backend/internal/pkg/chartweek"
	"github.com/chartloop/backend/internal/server/svr"
	"github.com/chartloop/backend/internal/service"
)

type Chart struct {
	fx.In

	GroupService *service.Group
	ChartService *service.Chart
}

func RegisterChart(v1 *svr.V1, c Chart) {
	v1.Get("/groups/:groupId/charts/:entryType", c.GetChart)
}

// GetChart serves one weekly chart. The week query parameter accepts a date
// (any day inside the wanted week) or "latest"; empty means latest.
func (c *Chart) GetChart(ctx *fiber.Ctx) error {
	groupID, err := parseGroupID(ctx)
	if err != nil {
		return err
	}
	entryType, err := parseEntryType(ctx)
	if err != nil {
		return err
	}

	week := ctx.Query("week")
	if week == "" || week == "latest" {
		entries, weekStart, err := c.ChartService.GetLatestChart(ctx.UserContext(), groupID, entryType)
		if err != nil {
			return err
		}
		if weekStart.IsZero() {
			return apperr.ErrNotFound.Msg("group has no charted weeks yet")
		}
		return ctx.JSON(fiber.Map{
			"weekStart": weekStart,
			"entries":   entries,
		})
	}

	requested, err := time.Parse(chartweek.KeyFormat, week)
	if err != nil {
		if requested, err = time.Parse(time.RFC3339, week); err != nil {
			return apperr.ErrInvalidReq.Msg("invalid week: want YYYY-MM-DD, RFC3339 or \"latest\"")
		}
	}

	group, err := c.GroupService.GetGroupByID(ctx.UserContext(), groupID)
	if err != nil {
		return err
	}
	weekStart := chartweek.Start(requested, group.TrackingDayOfWeek)

	entries, err := c.ChartService.GetChart(ctx.UserContext(), groupID, weekStart, entryType)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return apperr.ErrNotFound.Msg("no chart for the requested week")
	}
	return ctx.JSON(fiber.Map{
		"weekStart": weekStart,
		"entries":   entries,
	})
}

func parseEntryType(ctx *fiber.Ctx) (string, error) {
	entryType := ctx.Params("entryType")
	for _, known := range constant.EntryTypes {
		if entryType == known {
			return entryType, nil
		}
	}
	return "", apperr.ErrInvalidReq.Msg("invalid entryType: want one of artist, track, album")
}
