package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ventry/auth-api/internal/dto"
	"github.com/ventry/auth-api/internal/middleware"
	"github.com/ventry/auth-api/internal/services"
)

type UserHandler struct {
	authService *services.AuthService
}

func NewUserHandler(authService *services.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	user, err := h.authService.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// UpdateExclusive redeems an exclusive code for the current user. The code
// may come in the JSON body or as a query parameter.
func (h *UserHandler) UpdateExclusive(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.UpdateExclusiveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	if req.ExclusiveCode == "" {
		req.ExclusiveCode = c.Query("exclusive_code")
	}

	updated, err := h.authService.UpdateExclusive(c.UserContext(), user, req.ExclusiveCode)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(updated))
}
