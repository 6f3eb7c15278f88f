package controller

import (
	"bufio"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/pkg/serverutils"
	"rag-workspace-be/internal/service"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("session", c.CreateSession)
	h.Get("sessions/:workspaceId", c.ListSessions)
	h.Get("history/:sessionId", c.History)
	h.Post("send/:sessionId", c.Send)
	h.Post("cancel/:sessionId", c.Cancel)
	h.Delete("session/:sessionId", c.DeleteSession)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.CreateSession(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	workspaceId, err := uuid.Parse(ctx.Params("workspaceId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	res, err := c.chatService.ListSessions(ctx.Context(), workspaceId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.chatService.History(ctx.Context(), sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

// streamEvent is one server-sent event on the chat stream.
type streamEvent struct {
	Type    string `json:"type"` // "chunk", "done", "error", "no_context", "cancelled"
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Send starts a generation and streams fragments back as server-sent events.
// A no-context outcome answers with a plain JSON body instead of a stream.
func (c *chatController) Send(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.SessionId = sessionId
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	stream, err := c.chatService.SendMessage(ctx.Context(), &req)
	if err != nil {
		return err
	}

	if stream.NoContext {
		return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse("No relevant context found", streamEvent{
			Type:   "no_context",
			Reason: stream.Reason,
		}))
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	fragments := stream.Fragments
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// Whatever ends the write loop, keep draining so the generation
		// finishes and persists server-side; only Cancel stops it early.
		defer func() {
			for range fragments {
			}
		}()
		for fragment := range fragments {
			var evt streamEvent
			switch {
			case fragment.Err != nil && errors.Is(fragment.Err, apperror.ErrCancelled):
				evt = streamEvent{Type: "cancelled"}
			case fragment.Err != nil:
				evt = streamEvent{Type: "error", Message: fragment.Err.Error()}
			case fragment.Done:
				evt = streamEvent{Type: "done"}
			default:
				evt = streamEvent{Type: "chunk", Content: fragment.Content}
			}

			payload, err := json.Marshal(evt)
			if err != nil {
				return
			}
			if _, err := w.WriteString("data: " + string(payload) + "\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				// Client went away; the deferred drain keeps consuming until
				// the generation completes or is cancelled.
				return
			}
		}
	}))
	return nil
}

func (c *chatController) Cancel(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	cancelled := c.chatService.Cancel(ctx.Context(), sessionId)
	return ctx.JSON(serverutils.SuccessResponse("Success cancel", fiber.Map{"cancelled": cancelled}))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	if err := c.chatService.DeleteSession(ctx.Context(), sessionId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete session", nil))
}
