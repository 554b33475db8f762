package controllers

import (
	"context"

	"coderoast-backend/apperr"
	"coderoast-backend/middlewares"
	"coderoast-backend/models"
	"coderoast-backend/teams"

	"github.com/gofiber/fiber/v2"
)

type TeamManager interface {
	Create(ctx context.Context, userID string, req teams.CreateRequest) (*models.Team, error)
	Invite(ctx context.Context, userID, teamID string, req teams.InviteRequest) (*models.TeamMember, error)
	RemoveMember(ctx context.Context, userID, teamID, memberID string) error
	MyTeams(ctx context.Context, userID string) ([]models.Membership, error)
	Members(ctx context.Context, userID, teamID string) ([]models.TeamMember, error)
}

type TeamController struct {
	teams TeamManager
}

func NewTeamController(teams TeamManager) *TeamController {
	return &TeamController{teams: teams}
}

func (tc *TeamController) Create(c *fiber.Ctx) error {
	var req teams.CreateRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	team, err := tc.teams.Create(c.UserContext(), middlewares.UserID(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(team)
}

func (tc *TeamController) List(c *fiber.Ctx) error {
	mine, err := tc.teams.MyTeams(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(mine)
}

func (tc *TeamController) Members(c *fiber.Ctx) error {
	members, err := tc.teams.Members(c.UserContext(), middlewares.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(members)
}

func (tc *TeamController) Invite(c *fiber.Ctx) error {
	var req teams.InviteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.FieldError("_form", "Invalid request body")
	}
	member, err := tc.teams.Invite(c.UserContext(), middlewares.UserID(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	err := tc.teams.RemoveMember(c.UserContext(), middlewares.UserID(c), c.Params("id"), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
