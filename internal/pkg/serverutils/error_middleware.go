package serverutils

import (
	"errors"

	"doc-qa-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors bubbling out of handlers into
// the standard response envelope. Unusable input maps to 422, provider
// and store trouble to 502, everything unclassified to 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		var extractionErr *apperr.ExtractionError
		if errors.As(err, &extractionErr) {
			return ctx.Status(fiber.StatusUnprocessableEntity).
				JSON(ErrorResponse(fiber.StatusUnprocessableEntity, err.Error()))
		}

		var embeddingErr *apperr.EmbeddingError
		var storeErr *apperr.StoreError
		var generationErr *apperr.GenerationError
		if errors.As(err, &embeddingErr) || errors.As(err, &storeErr) || errors.As(err, &generationErr) {
			return ctx.Status(fiber.StatusBadGateway).
				JSON(ErrorResponse(fiber.StatusBadGateway, err.Error()))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse(fiber.StatusInternalServerError, "internal server error"))
	}
}
