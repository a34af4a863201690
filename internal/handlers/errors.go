package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/ventry/auth-api/internal/dto"
	"github.com/ventry/auth-api/internal/services"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	status, detail := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID(c),
			"error", err.Error(),
		)
	}
	if status == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Detail: detail})
}

func statusFor(err error) (int, string) {
	var validation *services.ValidationError
	var upstreamErr *services.UpstreamError

	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest, validation.Reason
	case errors.Is(err, services.ErrDuplicateEmail):
		return fiber.StatusBadRequest, "Email already registered"
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "Incorrect email or password"
	case errors.Is(err, services.ErrUnauthenticated):
		return fiber.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, services.ErrUserNotFound):
		return fiber.StatusNotFound, "User not found"
	case errors.Is(err, services.ErrInvalidExclusiveCode):
		return fiber.StatusBadRequest, "Invalid exclusive code"
	case errors.As(err, &upstreamErr):
		return fiber.StatusBadRequest, "Failed to process " + upstreamErr.Provider + " callback: " + upstreamErr.Err.Error()
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}

// ErrorHandler is the Fiber fallback for errors returned by handlers and
// middleware. Details are only exposed for 4xx responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled server error",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID(c),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Detail: message})
}

func badRequest(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Detail: detail})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
