package database

import (
	"context"
	"time"

	"coderoast-backend/models"

	"gorm.io/gorm"
)

// ReviewStore persists code reviews.
type ReviewStore struct {
	db *gorm.DB
}

func NewReviewStore(db *gorm.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

func (s *ReviewStore) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.CodeReview{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&n).Error
	return n, err
}

func (s *ReviewStore) Create(ctx context.Context, review *models.CodeReview) error {
	return s.db.WithContext(ctx).Create(review).Error
}

func (s *ReviewStore) ListRecent(ctx context.Context, userID string, limit int) ([]models.CodeReview, error) {
	reviews := []models.CodeReview{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}

func (s *ReviewStore) FindForUser(ctx context.Context, id, userID string) (*models.CodeReview, error) {
	var review models.CodeReview
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&review).Error
	if err != nil {
		return nil, notFound(err, "Review not found")
	}
	return &review, nil
}
