package v1

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/xid"
	"go.uber.org/fx"

	"github.com/chartloop/backend/internal/model/types"
	"github.com/chartloop/backend/internal/pkg/apperr"
	"github.com/chartloop/backend/internal/pkg/flog"
	"github.com/chartloop/backend/internal/server/svr"
	"github.com/chartloop/backend/internal/service"
)

type Generation struct {
	fx.In

	JS                nats.JetStreamContext
	GenerationService *service.Generation
}

func RegisterGeneration(v1 *svr.V1, c Generation) {
	v1.Post("/groups/:groupId/generate", c.Trigger)
	v1.Get("/groups/:groupId/generate/status", c.Status)
}

// Trigger enqueues one generation task for the group and returns immediately:
// the actual run happens on a worker consuming the queue.
func (c *Generation) Trigger(ctx *fiber.Ctx) error {
	groupID, err := parseGroupID(ctx)
	if err != nil {
		return err
	}

	taskID := xid.New()
	if id, ok := flog.IDFromFiberCtx(ctx); ok {
		taskID = id
	}

	task := &types.GenerationTask{
		TaskID:  taskID.String(),
		GroupID: groupID,
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}

	// MsgId dedupes triggers for the same group within the stream's
	// duplicate window
	if _, err := c.JS.Publish("GENERATE."+strconv.FormatInt(groupID, 10), body,
		nats.MsgId("generate-"+strconv.FormatInt(groupID, 10)),
	); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"taskId": task.TaskID,
	})
}

func (c *Generation) Status(ctx *fiber.Ctx) error {
	groupID, err := parseGroupID(ctx)
	if err != nil {
		return err
	}

	status, err := c.GenerationService.Status(ctx.UserContext(), groupID)
	if err != nil {
		return err
	}

	return ctx.JSON(status)
}

func parseGroupID(ctx *fiber.Ctx) (int64, error) {
	raw := strings.TrimSpace(ctx.Params("groupId"))
	groupID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || groupID <= 0 {
		return 0, apperr.ErrInvalidReq.Msg("invalid or missing groupId")
	}
	return groupID, nil
}
