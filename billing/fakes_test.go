package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"coderoast-backend/apperr"
	"coderoast-backend/models"
)

type memSubscriptions struct {
	mu   sync.Mutex
	rows map[string]*models.Subscription
}

func newMemSubscriptions(rows ...*models.Subscription) *memSubscriptions {
	m := &memSubscriptions{rows: map[string]*models.Subscription{}}
	for _, r := range rows {
		m.rows[r.UserId] = r
	}
	return m
}

func (m *memSubscriptions) FindByUser(_ context.Context, userID string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.rows[userID]
	if !ok {
		return nil, apperr.NotFound("Subscription not found")
	}
	cp := *sub
	return &cp, nil
}

func (m *memSubscriptions) UpsertByUser(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.rows[sub.UserId] = &cp
	return nil
}

func (m *memSubscriptions) UpdateBySubscriptionID(_ context.Context, subscriptionID string, fields map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, sub := range m.rows {
		if sub.StripeSubscriptionId == nil || *sub.StripeSubscriptionId != subscriptionID {
			continue
		}
		for k, v := range fields {
			switch k {
			case "plan":
				sub.Plan = v.(models.Plan)
			case "status":
				sub.Status = v.(string)
			case "stripe_subscription_id":
				sub.StripeSubscriptionId = nil
			case "stripe_price_id":
				if s, ok := v.(string); ok {
					sub.StripePriceId = &s
				} else {
					sub.StripePriceId = nil
				}
			case "stripe_current_period_end":
				t := v.(time.Time)
				sub.StripeCurrentPeriodEnd = &t
			}
		}
		n++
	}
	return n, nil
}

func (m *memSubscriptions) SetCustomer(_ context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.rows[userID]
	if !ok {
		return apperr.NotFound("Subscription not found")
	}
	sub.StripeCustomerId = customerID
	return nil
}

type fakeProcessor struct {
	subs      map[string]*RemoteSubscription
	getErr    error
	customers int
	checkouts []CheckoutRequest
}

func (f *fakeProcessor) GetSubscription(_ context.Context, id string) (*RemoteSubscription, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	sub, ok := f.subs[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return sub, nil
}

func (f *fakeProcessor) CreateCustomer(_ context.Context, _, _, _ string) (string, error) {
	f.customers++
	return "cus_real_1", nil
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (string, error) {
	f.checkouts = append(f.checkouts, req)
	return "https://checkout.example/" + req.PriceID, nil
}

func (f *fakeProcessor) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	return "https://portal.example/" + customerID, nil
}

func strPtr(s string) *string { return &s }
