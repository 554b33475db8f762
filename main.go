package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coderoast-backend/apikeys"
	"coderoast-backend/billing"
	"coderoast-backend/config"
	"coderoast-backend/controllers"
	"coderoast-backend/database"
	"coderoast-backend/logger"
	"coderoast-backend/metrics"
	"coderoast-backend/middlewares"
	"coderoast-backend/review"
	"coderoast-backend/routes"
	"coderoast-backend/teams"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.NewLogger(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, nil)

	// ---- Database
	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// ---- Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ---- Services
	users := database.NewUserStore(db)
	billingSvc := billing.NewService(
		database.NewSubscriptionStore(db),
		billing.NewStripeProcessor(cfg.Stripe.SecretKey),
		billing.PricesFromConfig(cfg.Stripe),
		cfg.Stripe.AppURL,
		log, m,
	)
	webhooks := billing.NewWebhookHandler(billingSvc, cfg.Stripe.WebhookSecret)

	generator, err := review.NewGenerator(cfg.LLM)
	if err != nil {
		log.Error("review client misconfigured", "error", err)
		os.Exit(1)
	}
	pipeline := review.NewPipeline(database.NewReviewStore(db), billingSvc, generator, log,
		review.WithMetrics(m),
		review.WithFreeLimit(cfg.FreeReviewLimit),
		review.WithMaxTokens(cfg.LLM.MaxTokens),
	)
	keys := apikeys.NewService(database.NewAPIKeyStore(db), billingSvc, log, m)
	teamSvc := teams.NewService(database.NewTeamStore(db), users, billingSvc, log)
	session := middlewares.NewAuth(cfg.JWTSecret, cfg.JWTTTL)

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler(log),
		BodyLimit:    cfg.BodyLimitBytes,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWin,
		Next: func(c *fiber.Ctx) bool {
			// Webhooks arrive in bursts from the processor.
			return c.Path() == "/api/webhooks/stripe"
		},
	}))

	// ---- Routes
	routes.Register(app, routes.Deps{
		Auth:      controllers.NewAuthController(users, session, log),
		Reviews:   controllers.NewReviewController(pipeline),
		APIKeys:   controllers.NewAPIKeyController(keys),
		Teams:     controllers.NewTeamController(teamSvc),
		Billing:   controllers.NewBillingController(billingSvc, webhooks, users, log),
		Dashboard: controllers.NewDashboardController(pipeline, billingSvc),
		Session:   session,
		Keys:      keys,
		DB:        db,
		Logger:    log,
		Gatherer:  reg,
	})

	// ---- Start, stop on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()
	log.Info("API server started", "port", cfg.Port, "llm_provider", generator.Name())

	<-ctx.Done()
	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
