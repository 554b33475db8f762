package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"coderoast-backend/apperr"
	"coderoast-backend/models"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// WebhookHandler verifies and applies processor events to Subscription rows.
type WebhookHandler struct {
	*Service
	secret string
}

func NewWebhookHandler(svc *Service, secret string) *WebhookHandler {
	return &WebhookHandler{Service: svc, secret: secret}
}

// Handle verifies the signature header against the shared secret and applies the event.
// Verification failures wrap ErrInvalidSignature and change nothing.
// Event types without a handler are acknowledged and ignored.
func (h *WebhookHandler) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.metrics.ObserveWebhook("unknown", "rejected")
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	eventType := string(event.Type)
	switch eventType {
	case EventCheckoutCompleted:
		err = h.checkoutCompleted(ctx, event)
	case EventInvoicePaid:
		err = h.invoicePaid(ctx, event)
	case EventSubscriptionDeleted:
		err = h.subscriptionDeleted(ctx, event)
	default:
		h.logger.Info("ignoring webhook event", "type", eventType, "id", event.ID)
		h.metrics.ObserveWebhook(eventType, "ignored")
		return nil
	}

	if err != nil {
		h.logger.Error("webhook event failed", "type", eventType, "id", event.ID, "error", err)
		h.metrics.ObserveWebhook(eventType, "error")
		return err
	}
	h.metrics.ObserveWebhook(eventType, "handled")
	return nil
}

func (h *WebhookHandler) checkoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return apperr.FieldError("event", "Malformed checkout session")
	}
	userID := sess.Metadata["userId"]
	if userID == "" {
		return apperr.FieldError("metadata.userId", "User id is required")
	}
	if sess.Subscription == nil || sess.Subscription.ID == "" {
		return apperr.FieldError("subscription", "Subscription id is required")
	}

	remote, err := h.processor.GetSubscription(ctx, sess.Subscription.ID)
	if err != nil {
		return processorError(fmt.Errorf("get subscription %s: %w", sess.Subscription.ID, err))
	}

	customerID := remote.CustomerID
	if customerID == "" && sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	periodEnd := remote.CurrentPeriodEnd
	status := remote.Status
	if status == "" {
		status = models.StatusActive
	}

	sub := &models.Subscription{
		UserId:                 userID,
		StripeCustomerId:       customerID,
		StripeSubscriptionId:   &remote.ID,
		StripePriceId:          &remote.PriceID,
		StripeCurrentPeriodEnd: &periodEnd,
		Plan:                   h.prices.PlanFor(remote.PriceID),
		Status:                 status,
	}
	if err := h.subs.UpsertByUser(ctx, sub); err != nil {
		return apperr.Persistence(err)
	}
	return nil
}

func (h *WebhookHandler) invoicePaid(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return apperr.FieldError("event", "Malformed invoice")
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		// One-off invoice, nothing to sync.
		return nil
	}

	remote, err := h.processor.GetSubscription(ctx, inv.Subscription.ID)
	if err != nil {
		return processorError(fmt.Errorf("get subscription %s: %w", inv.Subscription.ID, err))
	}

	_, err = h.subs.UpdateBySubscriptionID(ctx, remote.ID, map[string]any{
		"stripe_price_id":           remote.PriceID,
		"stripe_current_period_end": remote.CurrentPeriodEnd,
		"plan":                      h.prices.PlanFor(remote.PriceID),
		"status":                    remote.Status,
		"updated_at":                time.Now(),
	})
	if err != nil {
		return apperr.Persistence(err)
	}
	return nil
}

// subscriptionDeleted drops every row carrying the subscription back to free, whatever its plan was.
func (h *WebhookHandler) subscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil || sub.ID == "" {
		return apperr.FieldError("event", "Malformed subscription")
	}

	n, err := h.subs.UpdateBySubscriptionID(ctx, sub.ID, map[string]any{
		"plan":                   models.PlanFree,
		"status":                 models.StatusCanceled,
		"stripe_subscription_id": nil,
		"stripe_price_id":        nil,
		"updated_at":             time.Now(),
	})
	if err != nil {
		return apperr.Persistence(err)
	}
	h.logger.Info("subscription canceled", "subscription_id", sub.ID, "rows", n)
	return nil
}
