// Package apikeys manages API keys and authenticates programmatic requests with them.
package apikeys

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"coderoast-backend/apperr"
	"coderoast-backend/billing"
	"coderoast-backend/metrics"
	"coderoast-backend/models"
	"coderoast-backend/utils"
)

const bearerPrefix = "Bearer "

// Store persists API keys. Lookups that match nothing return an apperr NotFound error.
type Store interface {
	Create(ctx context.Context, key *models.APIKey) error
	ListByUser(ctx context.Context, userID string) ([]models.APIKey, error)
	DeleteForUser(ctx context.Context, id, userID string) error
	FindByHash(ctx context.Context, hash string) (*models.APIKey, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

type EntitlementResolver interface {
	Resolve(ctx context.Context, userID string) (billing.Entitlement, error)
}

type CreateRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

func (CreateRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"name.required": "Name is required",
		"name.max":      "Name must be at most 128 characters",
	}
}

// Created is returned once, when a key is issued. Key is the only copy of the plaintext secret.
type Created struct {
	models.APIKey
	Key string `json:"key"`
}

type Service struct {
	store        Store
	entitlements EntitlementResolver
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(store Store, entitlements EntitlementResolver, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:        store,
		entitlements: entitlements,
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

// Create issues a key for a subscribed user.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Created, error) {
	utils.NormalizeDTO(&req)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	ent, err := s.entitlements.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ent.IsSubscribed {
		return nil, apperr.QuotaExceeded("You need a Pro or Team subscription to create API keys")
	}

	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}
	key := &models.APIKey{
		UserId:    userID,
		Name:      req.Name,
		KeyHash:   HashSecret(secret),
		Prefix:    displayPrefix(secret),
		CreatedAt: s.now(),
	}
	if err := s.store.Create(ctx, key); err != nil {
		return nil, apperr.Persistence(err)
	}
	s.logger.Info("api key created", "user_id", userID, "key_id", key.Id)
	return &Created{APIKey: *key, Key: secret}, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]models.APIKey, error) {
	return s.store.ListByUser(ctx, userID)
}

// Delete removes one of the caller's keys. Keys owned by someone else are reported as not found.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteForUser(ctx, id, userID)
}

// Authenticate resolves the Authorization header of an API request to a key whose owner
// holds an active paid plan, and records the use.
func (s *Service) Authenticate(ctx context.Context, header string) (*models.APIKey, error) {
	if !strings.HasPrefix(header, bearerPrefix) || strings.TrimSpace(header[len(bearerPrefix):]) == "" {
		s.metrics.Reject("unauthenticated")
		return nil, apperr.Unauthenticated("Missing or invalid API key")
	}
	secret := strings.TrimSpace(header[len(bearerPrefix):])

	key, err := s.store.FindByHash(ctx, HashSecret(secret))
	if apperr.Is(err, apperr.KindNotFound) {
		s.metrics.Reject("unauthenticated")
		return nil, apperr.Unauthenticated("Invalid API key")
	}
	if err != nil {
		return nil, err
	}

	ent, err := s.entitlements.Resolve(ctx, key.UserId)
	if err != nil {
		return nil, err
	}
	if !ent.AllowsAPI() {
		s.metrics.Reject("forbidden")
		return nil, apperr.Forbidden("API access requires an active Pro or Team subscription")
	}

	now := s.now()
	if err := s.store.Touch(ctx, key.Id, now); err != nil {
		return nil, apperr.Persistence(err)
	}
	key.LastUsedAt = &now
	return key, nil
}
