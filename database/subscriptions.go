package database

import (
	"context"

	"coderoast-backend/apperr"
	"coderoast-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionStore persists the billing state synced from the payment processor.
type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

func (s *SubscriptionStore) FindByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, notFound(err, "Subscription not found")
	}
	return &sub, nil
}

// UpsertByUser inserts sub or overwrites the processor fields of the user's existing row.
func (s *SubscriptionStore) UpsertByUser(ctx context.Context, sub *models.Subscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_customer_id",
			"stripe_subscription_id",
			"stripe_price_id",
			"stripe_current_period_end",
			"plan",
			"status",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (s *SubscriptionStore) UpdateBySubscriptionID(ctx context.Context, subscriptionID string, fields map[string]any) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", subscriptionID).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (s *SubscriptionStore) SetCustomer(ctx context.Context, userID, customerID string) error {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Update("stripe_customer_id", customerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Subscription not found")
	}
	return nil
}
