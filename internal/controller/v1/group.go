package v1

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"

	"github.com/chartloop/backend/internal/pkg/apperr"
	"github.com/chartloop/backend/internal/server/svr"
	"github.com/chartloop/backend/internal/service"
)

type Group struct {
	fx.In

	GroupService       *service.Group
	GroupMemberService *service.GroupMember
}

func RegisterGroup(v1 *svr.V1, c Group) {
	v1.Get("/groups", c.GetGroups)
	v1.Get("/groups/:groupId", c.GetGroupByID)
	v1.Get("/groups/:groupId/members", c.GetMembers)
	v1.Delete("/groups/:groupId/members/:memberId", c.RemoveMember)
}

func (c *Group) GetGroups(ctx *fiber.Ctx) error {
	groups, err := c.GroupService.GetGroups(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(groups)
}

func (c *Group) GetGroupByID(ctx *fiber.Ctx) error {
	groupID, err := parseGroupID(ctx)
	if err != nil {
		return err
	}

	group, err := c.GroupService.GetGroupByID(ctx.UserContext(), groupID)
	if err != nil {
		return err
	}

	return ctx.JSON(group)
}

func (c *Group) GetMembers(ctx *fiber.Ctx) error {
	groupID, err := parseGroupID(ctx)
	if err != nil {
		return err
	}

	members, err := c.GroupMemberService.GetMembersByGroupID(ctx.UserContext(), groupID)
	if err != nil {
		return err
	}

	return ctx.JSON(members)
}

// RemoveMember detaches the member from the roster. Their historic
// contributions and charts survive; attributions crediting them recompute
// on the next read.
func (c *Group) RemoveMember(ctx *fiber.Ctx) error {
	groupID, err := parseGroupID(ctx)
	if err != nil {
		return err
	}

	memberID, err := strconv.ParseInt(strings.TrimSpace(ctx.Params("memberId")), 10, 64)
	if err != nil || memberID <= 0 {
		return apperr.ErrInvalidReq.Msg("invalid or missing memberId")
	}

	if err := c.GroupMemberService.RemoveMember(ctx.UserContext(), groupID, memberID); err != nil {
		return err
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}
