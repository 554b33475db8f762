package database

import (
	"context"
	"time"

	"coderoast-backend/apperr"
	"coderoast-backend/models"

	"gorm.io/gorm"
)

type APIKeyStore struct {
	db *gorm.DB
}

func NewAPIKeyStore(db *gorm.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

func (s *APIKeyStore) Create(ctx context.Context, key *models.APIKey) error {
	return s.db.WithContext(ctx).Create(key).Error
}

func (s *APIKeyStore) ListByUser(ctx context.Context, userID string) ([]models.APIKey, error) {
	keys := []models.APIKey{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

func (s *APIKeyStore) DeleteForUser(ctx context.Context, id, userID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.APIKey{})
	if res.Error != nil {
		return apperr.Persistence(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("API key not found")
	}
	return nil
}

func (s *APIKeyStore) FindByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var key models.APIKey
	if err := s.db.WithContext(ctx).Where("key_hash = ?", hash).First(&key).Error; err != nil {
		return nil, notFound(err, "API key not found")
	}
	return &key, nil
}

func (s *APIKeyStore) Touch(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
