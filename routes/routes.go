package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"coderoast-backend/controllers"
	"coderoast-backend/middlewares"
)

// Deps carries everything the routes are wired to.
type Deps struct {
	Auth      *controllers.AuthController
	Reviews   *controllers.ReviewController
	APIKeys   *controllers.APIKeyController
	Teams     *controllers.TeamController
	Billing   *controllers.BillingController
	Dashboard *controllers.DashboardController

	Session *middlewares.Auth
	Keys    middlewares.KeyAuthenticator
	// DB backs idempotency records; nil disables the Idempotency-Key guard.
	DB       *gorm.DB
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
}

// Register wires all HTTP routes.
func Register(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	idempotent := func(c *fiber.Ctx) error { return c.Next() }
	if d.DB != nil {
		idempotent = middlewares.Idempotency(d.DB, d.Logger)
	}

	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/register", d.Auth.Register)
	api.Post("/login", d.Auth.Login)
	api.Post("/logout", d.Auth.Logout)

	// Payment processor events (signature checked by the handler)
	api.Post("/webhooks/stripe", d.Billing.Webhook)

	// Programmatic API (API key auth)
	v1 := api.Group("/v1")
	v1.Post("/review", middlewares.RequireAPIKey(d.Keys), idempotent, d.Reviews.APIReview)

	// Protected endpoints (session auth)
	protected := api.Group("")
	protected.Use(d.Session.IsAuthenticated())

	protected.Get("/me", d.Auth.Me)
	protected.Patch("/me", d.Auth.UpdateMe)
	protected.Get("/dashboard", d.Dashboard.Show)

	// Reviews
	protected.Post("/reviews", idempotent, d.Reviews.Create)
	protected.Get("/reviews", d.Reviews.List)
	protected.Get("/reviews/:id", d.Reviews.Get)

	// API keys
	protected.Post("/keys", d.APIKeys.Create)
	protected.Get("/keys", d.APIKeys.List)
	protected.Delete("/keys/:id", d.APIKeys.Delete)

	// Teams
	protected.Post("/teams", d.Teams.Create)
	protected.Get("/teams", d.Teams.List)
	protected.Get("/teams/:id/members", d.Teams.Members)
	protected.Post("/teams/:id/members", d.Teams.Invite)
	protected.Delete("/teams/:id/members/:userId", d.Teams.RemoveMember)

	// Billing
	protected.Get("/billing/subscription", d.Billing.Subscription)
	protected.Post("/billing/checkout", d.Billing.Checkout)
	protected.Post("/billing/portal", d.Billing.Portal)
}
