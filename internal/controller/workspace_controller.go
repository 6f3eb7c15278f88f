package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/pkg/serverutils"
	"rag-workspace-be/internal/service"
)

type IWorkspaceController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type workspaceController struct {
	workspaceService service.IWorkspaceService
}

func NewWorkspaceController(workspaceService service.IWorkspaceService) IWorkspaceController {
	return &workspaceController{
		workspaceService: workspaceService,
	}
}

func (c *workspaceController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/workspace/v1")
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
}

func (c *workspaceController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateWorkspaceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.workspaceService.Create(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create workspace", res))
}

func (c *workspaceController) List(ctx *fiber.Ctx) error {
	res, err := c.workspaceService.List(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list workspaces", res))
}

func (c *workspaceController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	res, err := c.workspaceService.Get(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show workspace", res))
}

func (c *workspaceController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	if err := c.workspaceService.Delete(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete workspace", nil))
}
