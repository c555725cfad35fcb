package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/showingsafe/showingsafe-backend/internal/config"
	"github.com/showingsafe/showingsafe-backend/internal/handlers"
	"github.com/showingsafe/showingsafe-backend/internal/middleware"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	policyHandler *handlers.PolicyHandler,
	claimHandler *handlers.ClaimHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)

	// Policies — read-only; writes happen only via webhook reconciliation
	api.Get("/policies", middleware.JWTProtected(cfg), policyHandler.List)
	api.Get("/policies/:id", middleware.JWTProtected(cfg), policyHandler.Get)

	// Claims
	api.Post("/claims", middleware.JWTProtected(cfg), claimHandler.Submit)
	api.Get("/claims", middleware.JWTProtected(cfg), claimHandler.List)
	api.Get("/claims/:id", middleware.JWTProtected(cfg), claimHandler.Get)

	// Admin claim review (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/claims", claimHandler.ListAll)
	admin.Post("/claims/:id/decision", claimHandler.Decide)

	// Webhooks — gateway-signed, no JWT
	webhooks := api.Group("/webhooks")
	webhooks.Post("/stripe", webhookHandler.HandleStripe)
}
