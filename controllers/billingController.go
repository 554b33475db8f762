package controllers

import (
	"context"
	"errors"
	"log/slog"

	"coderoast-backend/billing"
	"coderoast-backend/middlewares"
	"coderoast-backend/models"

	"github.com/gofiber/fiber/v2"
)

type Billing interface {
	Resolve(ctx context.Context, userID string) (billing.Entitlement, error)
	Checkout(ctx context.Context, user *models.User, priceID string) (string, error)
	Portal(ctx context.Context, userID string) (string, error)
}

type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

type BillingController struct {
	billing  Billing
	webhooks WebhookProcessor
	users    UserStore
	logger   *slog.Logger
}

func NewBillingController(b Billing, webhooks WebhookProcessor, users UserStore, logger *slog.Logger) *BillingController {
	return &BillingController{billing: b, webhooks: webhooks, users: users, logger: logger}
}

type CheckoutRequest struct {
	PriceID string `json:"priceId" validate:"required"`
}

func (CheckoutRequest) ValidationMessages() map[string]string {
	return map[string]string{"priceId.required": "Price is required"}
}

func (bc *BillingController) Subscription(c *fiber.Ctx) error {
	ent, err := bc.billing.Resolve(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(ent)
}

func (bc *BillingController) Checkout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := bc.users.FindByID(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return err
	}
	url, err := bc.billing.Checkout(c.UserContext(), user, req.PriceID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": url})
}

func (bc *BillingController) Portal(c *fiber.Ctx) error {
	url, err := bc.billing.Portal(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": url})
}

// Webhook receives payment processor events. A bad signature is answered 400 and changes nothing.
func (bc *BillingController) Webhook(c *fiber.Ctx) error {
	err := bc.webhooks.Handle(c.UserContext(), c.Body(), c.Get("Stripe-Signature"))
	if errors.Is(err, billing.ErrInvalidSignature) {
		bc.logger.Warn("rejected webhook", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Webhook signature verification failed"})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"received": true})
}
