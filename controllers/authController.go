package controllers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"coderoast-backend/apperr"
	"coderoast-backend/middlewares"
	"coderoast-backend/models"
	"coderoast-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type UserStore interface {
	CreateWithSubscription(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, fields map[string]any) (*models.User, error)
}

type AuthController struct {
	users  UserStore
	auth   *middlewares.Auth
	logger *slog.Logger
}

func NewAuthController(users UserStore, auth *middlewares.Auth, logger *slog.Logger) *AuthController {
	return &AuthController{users: users, auth: auth, logger: logger}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8" normalize:"-"`
}

func (RegisterRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"name.required":     "Name is required",
		"name.min":          "Name must be at least 2 characters",
		"email.required":    "Email is required",
		"password.required": "Password is required",
		"password.min":      "Password must be at least 8 characters",
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required" normalize:"-"`
}

type UpdateMeRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2"`
	Image *string `json:"image" validate:"omitempty,url"`
}

// Register creates an account on the free plan.
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	user := models.User{Name: req.Name, Email: strings.ToLower(req.Email)}
	if err := user.SetPassword(req.Password); err != nil {
		return err
	}
	if err := ac.users.CreateWithSubscription(c.UserContext(), &user); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return apperr.FieldError("email", "User with this email already exists")
		}
		return apperr.Persistence(err)
	}

	ac.logger.Info("user registered", "user_id", user.Id)
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	invalid := apperr.FieldError("_form", "Invalid email or password")
	user, err := ac.users.FindByEmail(c.UserContext(), strings.ToLower(req.Email))
	if apperr.Is(err, apperr.KindNotFound) {
		return invalid
	}
	if err != nil {
		return err
	}
	if err := user.ComparePassword(req.Password); err != nil {
		return invalid
	}

	token, err := ac.auth.GenerateJWT(user.Id)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     middlewares.SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(ac.auth.TTL()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

func (ac *AuthController) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middlewares.SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{
		"message": "success",
	})
}

func (ac *AuthController) Me(c *fiber.Ctx) error {
	user, err := ac.users.FindByID(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// UpdateMe applies a partial profile update; absent fields are left alone.
func (ac *AuthController) UpdateMe(c *fiber.Ctx) error {
	var req UpdateMeRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := ac.users.Update(c.UserContext(), middlewares.UserID(c), utils.PatchFields(&req))
	if err != nil {
		return err
	}
	return c.JSON(user)
}
