package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/mealbox/internal/services"
)

var kindStatus = []struct {
	kind   error
	status int
}{
	{services.ErrValidation, fiber.StatusBadRequest},
	{services.ErrConflict, fiber.StatusConflict},
	{services.ErrInvalidOrExpiredCode, fiber.StatusBadRequest},
	{services.ErrUnauthorized, fiber.StatusUnauthorized},
	{services.ErrInvalidTransition, fiber.StatusConflict},
	{services.ErrDelivery, fiber.StatusBadGateway},
	{services.ErrNotFound, fiber.StatusNotFound},
	{services.ErrTooManyRequests, fiber.StatusTooManyRequests},
}

// ErrorHandler renders service and fiber errors as {"success": false, "error", "code"}.
func ErrorHandler(logger *zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		code := "internal_error"
		message := "internal server error"

		var svcErr *services.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &svcErr):
			status = statusFor(svcErr)
			code = svcErr.Code
			message = svcErr.Message
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			code = statusCode(status)
			message = fiberErr.Message
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Int("status", status).
				Msg("request failed")
		}

		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   message,
			"code":    code,
		})
	}
}

func statusFor(err *services.Error) int {
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.status
		}
	}
	return fiber.StatusInternalServerError
}

func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
