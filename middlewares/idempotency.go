package middlewares

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coderoast-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const idempotencyHeader = "Idempotency-Key"

// Idempotency replays the first successful response for an Idempotency-Key on mutating methods.
// Keys are scoped per user. Reusing a key with a different request, or while the first request
// is still running, answers 409. Only 2xx responses are stored; otherwise the key is released
// so the client may retry.
func Idempotency(db *gorm.DB, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		userID := UserID(c)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		path := c.OriginalURL() // includes query string
		reqHash := requestHash(method, path, c.Body(), userID)
		ctx := c.UserContext()

		// ---- Phase 1: claim the key, or replay what it already holds
		var existing models.IdempotencyKey
		replay := false
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Where("user_id = ? AND key = ?", userID, key).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rec := models.IdempotencyKey{
					Key:         key,
					UserID:      userID,
					RequestHash: reqHash,
					Method:      method,
					Path:        path,
				}
				if err := tx.Create(&rec).Error; err != nil {
					return fiber.NewError(fiber.StatusConflict, "Request with this Idempotency-Key is in progress")
				}
				existing = rec
				return nil
			}
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
			}

			if existing.RequestHash != reqHash {
				return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
			}
			if existing.ResponseStatus == 0 {
				return fiber.NewError(fiber.StatusConflict, "Request with this Idempotency-Key is in progress")
			}
			replay = true
			return nil
		})
		if err != nil {
			return err
		}
		if replay {
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}

		// ---- Phase 2: run the handler once and record its outcome
		handlerErr := c.Next()
		status := c.Response().StatusCode()
		if handlerErr != nil || status < 200 || status > 299 {
			if err := releaseKey(ctx, db, existing.ID); err != nil {
				log.Error("idempotency key not released", "key", key, "user_id", userID, "error", err)
			}
			return handlerErr
		}

		body := append([]byte(nil), c.Response().Body()...)
		if err := completeKey(ctx, db, existing.ID, status, body); err != nil {
			log.Error("idempotency response not stored", "key", key, "user_id", userID, "error", err)
		}
		return nil
	}
}

// releaseKey drops a claim so the client can retry with the same key.
func releaseKey(ctx context.Context, db *gorm.DB, id uint) error {
	if err := db.WithContext(ctx).Where("id = ?", id).Delete(&models.IdempotencyKey{}).Error; err != nil {
		return fmt.Errorf("release idempotency key %d: %w", id, err)
	}
	return nil
}

// completeKey records the response that later requests replay.
func completeKey(ctx context.Context, db *gorm.DB, id uint, status int, body []byte) error {
	now := time.Now().UTC()
	err := db.WithContext(ctx).Model(&models.IdempotencyKey{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"response_status": status,
			"response_body":   body,
			"completed_at":    &now,
		}).Error
	if err != nil {
		return fmt.Errorf("complete idempotency key %d: %w", id, err)
	}
	return nil
}

// requestHash is sha256 of method|path|body|user.
func requestHash(method, path string, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
