package controller

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/pkg/serverutils"
	"rag-workspace-be/internal/service"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Post(":workspaceId", c.Upload)
	h.Get(":workspaceId", c.List)
	h.Get(":workspaceId/:id", c.Show)
	h.Delete(":workspaceId/:id", c.Delete)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	workspaceId, err := uuid.Parse(ctx.Params("workspaceId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file field")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	contentType := fileHeader.Header.Get("Content-Type")
	req := dto.UploadDocumentRequest{
		WorkspaceId: workspaceId,
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.Upload(ctx.Context(), &req)
	if err != nil {
		return err
	}

	status := fiber.StatusAccepted
	if res.IsDuplicate {
		status = fiber.StatusOK
	}
	return ctx.Status(status).JSON(serverutils.SuccessResponse("Success upload document", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	workspaceId, err := uuid.Parse(ctx.Params("workspaceId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	res, err := c.documentService.List(ctx.Context(), workspaceId, ctx.Query("status"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list documents", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	workspaceId, err := uuid.Parse(ctx.Params("workspaceId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	res, err := c.documentService.Get(ctx.Context(), workspaceId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show document", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	workspaceId, err := uuid.Parse(ctx.Params("workspaceId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	if err := c.documentService.Delete(ctx.Context(), workspaceId, id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete document", nil))
}
