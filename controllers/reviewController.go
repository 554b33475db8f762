package controllers

import (
	"context"

	"coderoast-backend/apperr"
	"coderoast-backend/middlewares"
	"coderoast-backend/models"
	"coderoast-backend/review"
	"coderoast-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type Reviewer interface {
	Submit(ctx context.Context, userID string, req review.Request) (*review.Submission, error)
	Execute(ctx context.Context, userID string, req review.Request) (*review.Submission, error)
	Recent(ctx context.Context, userID string, limit int) ([]models.CodeReview, error)
	Get(ctx context.Context, userID, id string) (*models.CodeReview, error)
	Usage(ctx context.Context, userID string) (review.Usage, error)
}

type ReviewController struct {
	reviews Reviewer
}

func NewReviewController(reviews Reviewer) *ReviewController {
	return &ReviewController{reviews: reviews}
}

// Create runs the interactive review flow for the signed-in user.
func (rc *ReviewController) Create(c *fiber.Ctx) error {
	var req review.Request
	if err := c.BodyParser(&req); err != nil {
		return apperr.FieldError("_form", "Invalid request body")
	}
	utils.NormalizeDTO(&req)

	sub, err := rc.reviews.Submit(c.UserContext(), middlewares.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(sub)
}

// List returns the caller's newest reviews (?limit=N, default 5).
func (rc *ReviewController) List(c *fiber.Ctx) error {
	limit := utils.ParseIntDefault(c.Query("limit"), 5)
	if limit > 50 {
		limit = 50
	}
	reviews, err := rc.reviews.Recent(c.UserContext(), middlewares.UserID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(reviews)
}

func (rc *ReviewController) Get(c *fiber.Ctx) error {
	r, err := rc.reviews.Get(c.UserContext(), middlewares.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// APIReview is the programmatic entrypoint. The API-key middleware has already
// authorized the caller; the body is {code, language?}.
func (rc *ReviewController) APIReview(c *fiber.Ctx) error {
	var req review.Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	utils.NormalizeDTO(&req)

	sub, err := rc.reviews.Execute(c.UserContext(), middlewares.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(sub.ReviewResult)
}
