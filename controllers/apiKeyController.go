package controllers

import (
	"context"

	"coderoast-backend/apikeys"
	"coderoast-backend/middlewares"
	"coderoast-backend/models"

	"github.com/gofiber/fiber/v2"
)

type KeyManager interface {
	Create(ctx context.Context, userID string, req apikeys.CreateRequest) (*apikeys.Created, error)
	List(ctx context.Context, userID string) ([]models.APIKey, error)
	Delete(ctx context.Context, userID, id string) error
}

type APIKeyController struct {
	keys KeyManager
}

func NewAPIKeyController(keys KeyManager) *APIKeyController {
	return &APIKeyController{keys: keys}
}

// Create issues a key. The plaintext secret is in this response only.
func (kc *APIKeyController) Create(c *fiber.Ctx) error {
	var req apikeys.CreateRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	created, err := kc.keys.Create(c.UserContext(), middlewares.UserID(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (kc *APIKeyController) List(c *fiber.Ctx) error {
	keys, err := kc.keys.List(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(keys)
}

func (kc *APIKeyController) Delete(c *fiber.Ctx) error {
	if err := kc.keys.Delete(c.UserContext(), middlewares.UserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
