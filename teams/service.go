// Package teams manages teams and their membership.
package teams

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"coderoast-backend/apperr"
	"coderoast-backend/billing"
	"coderoast-backend/models"
	"coderoast-backend/utils"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name, collapses runs of other characters into one dash and trims dashes.
func Slugify(name string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// Store persists teams. Lookups that match nothing return an apperr NotFound error.
type Store interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	// CreateWithOwner inserts the team and its owner membership atomically.
	CreateWithOwner(ctx context.Context, team *models.Team, ownerID string) error
	Member(ctx context.Context, teamID, userID string) (*models.TeamMember, error)
	AddMember(ctx context.Context, member *models.TeamMember) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	ListForUser(ctx context.Context, userID string) ([]models.Membership, error)
	ListMembers(ctx context.Context, teamID string) ([]models.TeamMember, error)
}

type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type EntitlementResolver interface {
	Resolve(ctx context.Context, userID string) (billing.Entitlement, error)
}

type CreateRequest struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
}

func (CreateRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"name.required": "Team name is required",
		"name.min":      "Team name must be at least 2 characters",
		"name.max":      "Team name must be at most 64 characters",
	}
}

type InviteRequest struct {
	Email string          `json:"email" validate:"required,email"`
	Role  models.TeamRole `json:"role" validate:"required,oneof=member admin"`
}

func (InviteRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"email.required": "Email is required",
		"role.oneof":     "Role must be member or admin",
	}
}

type Service struct {
	store        Store
	users        UserFinder
	entitlements EntitlementResolver
	logger       *slog.Logger
}

func NewService(store Store, users UserFinder, entitlements EntitlementResolver, logger *slog.Logger) *Service {
	return &Service{store: store, users: users, entitlements: entitlements, logger: logger}
}

// Create makes a team owned by userID. Only users on the team plan may create teams.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*models.Team, error) {
	utils.NormalizeDTO(&req)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	ent, err := s.entitlements.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ent.Plan != models.PlanTeam {
		return nil, apperr.QuotaExceeded("You need a Team subscription to create teams")
	}

	slug := Slugify(req.Name)
	if slug == "" {
		return nil, apperr.FieldError("name", "Team name must contain letters or digits")
	}
	exists, err := s.store.SlugExists(ctx, slug)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if exists {
		return nil, apperr.FieldError("name", "A team with this name already exists")
	}

	team := &models.Team{Name: req.Name, Slug: slug}
	if err := s.store.CreateWithOwner(ctx, team, userID); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.FieldError("name", "A team with this name already exists")
		}
		return nil, apperr.Persistence(err)
	}
	s.logger.Info("team created", "team_id", team.Id, "owner_id", userID)
	return team, nil
}

// manager returns the caller's membership if it may manage the team.
func (s *Service) manager(ctx context.Context, userID, teamID string) (*models.TeamMember, error) {
	m, err := s.store.Member(ctx, teamID, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Forbidden("You don't have permission to manage this team")
	}
	if err != nil {
		return nil, err
	}
	if !m.Role.CanManage() {
		return nil, apperr.Forbidden("You don't have permission to manage this team")
	}
	return m, nil
}

// Invite adds an existing user to the team.
func (s *Service) Invite(ctx context.Context, userID, teamID string, req InviteRequest) (*models.TeamMember, error) {
	utils.NormalizeDTO(&req)
	req.Email = strings.ToLower(req.Email)
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.manager(ctx, userID, teamID); err != nil {
		return nil, err
	}

	invitee, err := s.users.FindByEmail(ctx, req.Email)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}

	_, err = s.store.Member(ctx, teamID, invitee.Id)
	if err == nil {
		return nil, apperr.Conflict("User is already a member of this team")
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	member := &models.TeamMember{TeamId: teamID, UserId: invitee.Id, Role: req.Role}
	if err := s.store.AddMember(ctx, member); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, err
		}
		return nil, apperr.Persistence(err)
	}
	member.User = *invitee
	return member, nil
}

// RemoveMember removes memberID from the team. The owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, userID, teamID, memberID string) error {
	if _, err := s.manager(ctx, userID, teamID); err != nil {
		return err
	}
	target, err := s.store.Member(ctx, teamID, memberID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleOwner {
		return apperr.Forbidden("The team owner cannot be removed")
	}
	return s.store.RemoveMember(ctx, teamID, memberID)
}

func (s *Service) MyTeams(ctx context.Context, userID string) ([]models.Membership, error) {
	return s.store.ListForUser(ctx, userID)
}

// Members lists a team's members. Non-members get an empty list.
func (s *Service) Members(ctx context.Context, userID, teamID string) ([]models.TeamMember, error) {
	if _, err := s.store.Member(ctx, teamID, userID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return []models.TeamMember{}, nil
		}
		return nil, err
	}
	return s.store.ListMembers(ctx, teamID)
}
