package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/ventry/auth-api/internal/models"
)

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	ExclusiveCode string `json:"exclusive_code,omitempty"`
}

type ExclusiveCodeRequest struct {
	Email string `json:"email"`
}

type UpdateExclusiveRequest struct {
	ExclusiveCode string `json:"exclusive_code" query:"exclusive_code"`
}

// AppleCallbackForm is what Apple posts to the redirect URI (response_mode=form_post).
type AppleCallbackForm struct {
	Code    string `form:"code"`
	IDToken string `form:"id_token"`
	User    string `form:"user"`
	State   string `form:"state"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

type ExclusiveCodeResponse struct {
	Message  string `json:"message"`
	CodeSent bool   `json:"code_sent"`
}

type AuthorizationURLResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// UserResponse is the only user shape returned to clients.
type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	IsActive        bool      `json:"is_active"`
	IsVerified      bool      `json:"is_verified"`
	CreatedAt       time.Time `json:"created_at"`
	Provider        string    `json:"provider"`
	ExclusiveAccess bool      `json:"exclusive_access"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		IsActive:        u.IsActive,
		IsVerified:      u.IsVerified,
		CreatedAt:       u.CreatedAt,
		Provider:        u.Provider,
		ExclusiveAccess: u.ExclusiveAccess,
	}
}

type ErrorResponse struct {
	Error  bool   `json:"error"`
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
