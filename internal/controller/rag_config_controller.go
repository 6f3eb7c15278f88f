package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/pkg/serverutils"
	"rag-workspace-be/internal/service"
)

type IRagConfigController interface {
	RegisterRoutes(r fiber.Router)
	Options(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
}

type ragConfigController struct {
	configService service.IRagConfigService
}

func NewRagConfigController(configService service.IRagConfigService) IRagConfigController {
	return &ragConfigController{
		configService: configService,
	}
}

func (c *ragConfigController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag-config/v1")
	h.Get("options", c.Options)
	h.Get(":workspaceId", c.Show)
	h.Post(":workspaceId", c.Create)
	h.Put(":workspaceId", c.Update)
}

// Options lists the identifiers accepted in a config, straight from the
// registries, so clients never guess strategy names.
func (c *ragConfigController) Options(ctx *fiber.Ctx) error {
	res := c.configService.ListOptions(ctx.Context())
	return ctx.JSON(serverutils.SuccessResponse("Success list rag options", res))
}

func (c *ragConfigController) Show(ctx *fiber.Ctx) error {
	workspaceId, err := uuid.Parse(ctx.Params("workspaceId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	res, err := c.configService.Get(ctx.Context(), workspaceId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show rag config", res))
}

func (c *ragConfigController) Create(ctx *fiber.Ctx) error {
	workspaceId, err := uuid.Parse(ctx.Params("workspaceId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	var req dto.CreateRagConfigRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.WorkspaceId = workspaceId
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.configService.Create(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create rag config", res))
}

// Update always answers 409: configs are immutable by contract.
func (c *ragConfigController) Update(ctx *fiber.Ctx) error {
	workspaceId, err := uuid.Parse(ctx.Params("workspaceId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}
	return c.configService.Update(ctx.Context(), workspaceId)
}
