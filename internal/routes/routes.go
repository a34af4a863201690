package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ventry/auth-api/internal/handlers"
	"github.com/ventry/auth-api/internal/metrics"
	"github.com/ventry/auth-api/internal/middleware"
	"github.com/ventry/auth-api/internal/services"
)

func Setup(
	app *fiber.App,
	authService *services.AuthService,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
	gatherer prometheus.Gatherer,
) {
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(gatherer)))
	}

	api := app.Group("/api")

	api.Get("/health", healthHandler.Check)

	// Auth (public)
	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/request-code", authHandler.RequestCode)
	auth.Get("/google", authHandler.GoogleLogin)
	auth.Get("/google/callback", authHandler.GoogleCallback)
	auth.Get("/apple", authHandler.AppleLogin)
	auth.Post("/apple/callback", authHandler.AppleCallback)

	// Users (bearer token required). /me routes are registered before /:id.
	users := api.Group("/users", middleware.JWTProtected(authService))
	users.Get("/me", userHandler.Me)
	users.Put("/me/update-exclusive", userHandler.UpdateExclusive)
	users.Get("/:id", userHandler.GetByID)
}
