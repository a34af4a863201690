package middleware

import (
	"errors"
	"log/slog"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ventry/auth-api/internal/dto"
	"github.com/ventry/auth-api/internal/models"
	"github.com/ventry/auth-api/internal/services"
)

const (
	tokenContextKey = "token"
	userContextKey  = "current_user"
)

// JWTProtected requires a valid bearer token for an active user and stores
// that user in the request locals.
func JWTProtected(auth *services.AuthService) fiber.Handler {
	tokens := auth.Tokens()

	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwt.SigningMethodHS256.Alg(),
			Key:    tokens.Secret(),
		},
		Claims:     &services.AccessClaims{},
		ContextKey: tokenContextKey,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals(tokenContextKey).(*jwt.Token)
			if !ok {
				return unauthorized(c, auth, services.ErrTokenMalformed)
			}
			claims, ok := token.Claims.(*services.AccessClaims)
			if !ok {
				return unauthorized(c, auth, services.ErrTokenMalformed)
			}
			// The decoder's own exp check is not relied upon.
			if err := tokens.CheckClaims(claims); err != nil {
				return unauthorized(c, auth, err)
			}

			userID, err := claims.UserID()
			if err != nil {
				return unauthorized(c, auth, err)
			}
			user, err := auth.Authenticate(c.UserContext(), userID)
			if err != nil {
				if errors.Is(err, services.ErrUnauthenticated) {
					return unauthorized(c, auth, err)
				}
				return err
			}

			c.Locals(userContextKey, user)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c, auth, classifyTokenError(err))
		},
	})
}

// CurrentUser returns the user set by JWTProtected.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(userContextKey).(*models.User)
	if !ok || user == nil {
		return nil, services.ErrUnauthenticated
	}
	return user, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		return services.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return services.ErrTokenSignature
	default:
		return services.ErrTokenMalformed
	}
}

func unauthorized(c *fiber.Ctx, auth *services.AuthService, err error) error {
	auth.RecordTokenRejection(err)
	slog.Debug("bearer token rejected", "path", c.Path(), "reason", err.Error())

	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:  true,
		Detail: "Could not validate credentials",
	})
}
