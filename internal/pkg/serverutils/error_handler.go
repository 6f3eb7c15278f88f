package serverutils

import (
	"errors"

	"rag-workspace-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps domain errors to HTTP responses so controllers
// can simply return them.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		var invalidCfg *apperror.InvalidConfigError
		switch {
		case errors.As(err, &invalidCfg):
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"message": invalidCfg.Error(),
				"field":   invalidCfg.Field,
			})
		case errors.Is(err, apperror.ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, apperror.ErrConfigImmutable):
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, apperror.ErrGenerationInFlight):
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, apperror.ErrRetrieval):
			return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": err.Error()})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
