package controllers

import (
	"context"

	"coderoast-backend/billing"
	"coderoast-backend/middlewares"
	"coderoast-backend/models"
	"coderoast-backend/review"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

type EntitlementResolver interface {
	Resolve(ctx context.Context, userID string) (billing.Entitlement, error)
}

type DashboardController struct {
	reviews      Reviewer
	entitlements EntitlementResolver
}

func NewDashboardController(reviews Reviewer, entitlements EntitlementResolver) *DashboardController {
	return &DashboardController{reviews: reviews, entitlements: entitlements}
}

type Dashboard struct {
	Subscription  billing.Entitlement `json:"subscription"`
	RecentReviews []models.CodeReview `json:"recentReviews"`
	Usage         review.Usage        `json:"usage"`
}

// Show loads the dashboard sections concurrently.
func (dc *DashboardController) Show(c *fiber.Ctx) error {
	userID := middlewares.UserID(c)
	var out Dashboard

	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		out.Subscription, err = dc.entitlements.Resolve(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.RecentReviews, err = dc.reviews.Recent(ctx, userID, 5)
		return err
	})
	g.Go(func() (err error) {
		out.Usage, err = dc.reviews.Usage(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if out.Subscription.Plan != models.PlanFree {
		out.Usage.Limit = 0
	}
	return c.JSON(out)
}
