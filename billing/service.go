// Package billing owns entitlement: the user's plan as synced from the
// payment processor, checkout and portal sessions, and webhook handling.
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coderoast-backend/apperr"
	"coderoast-backend/metrics"
	"coderoast-backend/models"
)

// Entitlement is a user's current plan and subscription state.
type Entitlement struct {
	Plan         models.Plan `json:"plan"`
	Status       string      `json:"status,omitempty"`
	IsSubscribed bool        `json:"isSubscribed"`
	IsCanceled   bool        `json:"isCanceled"`
	PeriodEnd    *time.Time  `json:"periodEnd"`
}

// AllowsAPI reports whether the programmatic API may be used: an active, paid plan.
func (e Entitlement) AllowsAPI() bool {
	return e.Status == models.StatusActive && e.Plan != models.PlanFree
}

// SubscriptionStore persists Subscription rows.
// FindByUser returns an apperr NotFound error when the user has no row.
type SubscriptionStore interface {
	FindByUser(ctx context.Context, userID string) (*models.Subscription, error)
	UpsertByUser(ctx context.Context, sub *models.Subscription) error
	UpdateBySubscriptionID(ctx context.Context, subscriptionID string, fields map[string]any) (int64, error)
	SetCustomer(ctx context.Context, userID, customerID string) error
}

type Service struct {
	subs      SubscriptionStore
	processor Processor
	prices    PriceMap
	appURL    string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(subs SubscriptionStore, processor Processor, prices PriceMap, appURL string, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		subs:      subs,
		processor: processor,
		prices:    prices,
		appURL:    appURL,
		logger:    logger,
		metrics:   m,
	}
}

// Resolve returns the user's entitlement. A user without a subscription row is on the free plan.
// Whether a paid subscription is set to cancel is asked of the processor; if that call fails
// the subscription is reported as not canceling.
func (s *Service) Resolve(ctx context.Context, userID string) (Entitlement, error) {
	sub, err := s.subs.FindByUser(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return Entitlement{Plan: models.PlanFree}, nil
	}
	if err != nil {
		return Entitlement{}, err
	}

	ent := Entitlement{
		Plan:         sub.Plan,
		Status:       sub.Status,
		IsSubscribed: sub.Plan != models.PlanFree && sub.Status == models.StatusActive,
		PeriodEnd:    sub.StripeCurrentPeriodEnd,
	}
	if ent.Plan == "" {
		ent.Plan = models.PlanFree
	}

	if ent.IsSubscribed && sub.StripeSubscriptionId != nil && s.processor != nil {
		remote, err := s.processor.GetSubscription(ctx, *sub.StripeSubscriptionId)
		if err != nil {
			s.logger.Warn("fetching subscription from processor failed",
				"user_id", userID, "subscription_id", *sub.StripeSubscriptionId, "error", err)
		} else {
			ent.IsCanceled = remote.CancelAtPeriodEnd
		}
	}
	return ent, nil
}

// Checkout starts a subscription checkout for user and returns the hosted session URL.
// A processor customer is created the first time a user checks out.
func (s *Service) Checkout(ctx context.Context, user *models.User, priceID string) (string, error) {
	if !s.prices.Known(priceID) {
		return "", apperr.FieldError("priceId", "Invalid price")
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	url, err := s.processor.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     user.Id,
		SuccessURL: s.appURL + "/dashboard?checkout=success",
		CancelURL:  s.appURL + "/pricing?checkout=canceled",
	})
	if err != nil {
		return "", processorError(fmt.Errorf("create checkout session: %w", err))
	}
	return url, nil
}

func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	sub, err := s.subs.FindByUser(ctx, user.Id)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return "", err
	}
	if sub != nil && !sub.HasPlaceholderCustomer() {
		return sub.StripeCustomerId, nil
	}

	customerID, err := s.processor.CreateCustomer(ctx, user.Email, user.Name, user.Id)
	if err != nil {
		return "", processorError(fmt.Errorf("create customer: %w", err))
	}

	if sub == nil {
		err = s.subs.UpsertByUser(ctx, &models.Subscription{
			UserId:           user.Id,
			StripeCustomerId: customerID,
			Plan:             models.PlanFree,
		})
	} else {
		err = s.subs.SetCustomer(ctx, user.Id, customerID)
	}
	if err != nil {
		return "", apperr.Persistence(err)
	}
	return customerID, nil
}

// Portal returns a billing portal URL for managing an existing subscription.
func (s *Service) Portal(ctx context.Context, userID string) (string, error) {
	sub, err := s.subs.FindByUser(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) || (err == nil && sub.HasPlaceholderCustomer()) {
		return "", apperr.Forbidden("You don't have an active subscription")
	}
	if err != nil {
		return "", err
	}

	url, err := s.processor.CreatePortalSession(ctx, sub.StripeCustomerId, s.appURL+"/dashboard")
	if err != nil {
		return "", processorError(fmt.Errorf("create portal session: %w", err))
	}
	return url, nil
}

func processorError(err error) error {
	return apperr.Transport(0, err).WithMessage("Payment processor error. Please try again.")
}
