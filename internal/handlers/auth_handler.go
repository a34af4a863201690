package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ventry/auth-api/internal/dto"
	"github.com/ventry/auth-api/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Signup(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) RequestCode(c *fiber.Ctx) error {
	var req dto.ExclusiveCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" {
		return badRequest(c, "Email is required")
	}

	resp, err := h.authService.RequestExclusiveCode(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	return c.JSON(dto.AuthorizationURLResponse{
		AuthorizationURL: h.authService.GoogleAuthorizationURL(),
	})
}

func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return badRequest(c, "Missing authorization code")
	}

	resp, err := h.authService.GoogleCallback(c.UserContext(), code)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) AppleLogin(c *fiber.Ctx) error {
	return c.JSON(dto.AuthorizationURLResponse{
		AuthorizationURL: h.authService.AppleAuthorizationURL(),
	})
}

func (h *AuthHandler) AppleCallback(c *fiber.Ctx) error {
	var form dto.AppleCallbackForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, "Invalid form body")
	}
	if form.IDToken == "" {
		return badRequest(c, "Missing ID token from Apple")
	}

	resp, err := h.authService.AppleCallback(c.UserContext(), &form)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}
