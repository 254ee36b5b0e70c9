package controller

import (
	"collab-docs-be/internal/dto"
	"collab-docs-be/internal/pkg/serverutils"
	"collab-docs-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ICollabController interface {
	RegisterRoutes(r fiber.Router)
	ActiveUsers(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Transform(ctx *fiber.Ctx) error
	Compose(ctx *fiber.Ctx) error
	Invert(ctx *fiber.Ctx) error
}

type collabController struct {
	collabService service.ICollabService
}

func NewCollabController(collabService service.ICollabService) ICollabController {
	return &collabController{
		collabService: collabService,
	}
}

func (c *collabController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/collab/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("documents/:id/active-users", c.ActiveUsers)
	h.Get("documents/:id/stats", c.Stats)
	h.Post("transform", c.Transform)
	h.Post("compose", c.Compose)
	h.Post("invert", c.Invert)
}

func (c *collabController) ActiveUsers(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewApiError(fiber.StatusBadRequest, "invalid document id")
	}

	res, err := c.collabService.ActiveUsers(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list active users", res))
}

func (c *collabController) Stats(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewApiError(fiber.StatusBadRequest, "invalid document id")
	}

	res, err := c.collabService.Stats(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show document stats", res))
}

func (c *collabController) Transform(ctx *fiber.Ctx) error {
	var req dto.TransformRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.collabService.Transform(&req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success transform operation", res))
}

func (c *collabController) Compose(ctx *fiber.Ctx) error {
	var req dto.ComposeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.collabService.Compose(&req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success compose operations", res))
}

func (c *collabController) Invert(ctx *fiber.Ctx) error {
	var req dto.InvertRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.collabService.Invert(&req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success invert operation", res))
}
