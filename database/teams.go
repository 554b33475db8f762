package database

import (
	"context"

	"coderoast-backend/apperr"
	"coderoast-backend/models"

	"gorm.io/gorm"
)

type TeamStore struct {
	db *gorm.DB
}

func NewTeamStore(db *gorm.DB) *TeamStore {
	return &TeamStore{db: db}
}

func (s *TeamStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Team{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (s *TeamStore) CreateWithOwner(ctx context.Context, team *models.Team, ownerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return conflict(err, "A team with this name already exists")
		}
		owner := models.TeamMember{TeamId: team.Id, UserId: ownerID, Role: models.RoleOwner}
		return tx.Create(&owner).Error
	})
}

func (s *TeamStore) Member(ctx context.Context, teamID, userID string) (*models.TeamMember, error) {
	var m models.TeamMember
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&m).Error
	if err != nil {
		return nil, notFound(err, "Member not found")
	}
	return &m, nil
}

func (s *TeamStore) AddMember(ctx context.Context, member *models.TeamMember) error {
	if err := s.db.WithContext(ctx).Omit("User").Create(member).Error; err != nil {
		return conflict(err, "User is already a member of this team")
	}
	return nil
}

func (s *TeamStore) RemoveMember(ctx context.Context, teamID, userID string) error {
	res := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Member not found")
	}
	return nil
}

func (s *TeamStore) ListForUser(ctx context.Context, userID string) ([]models.Membership, error) {
	var members []models.TeamMember
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []models.Membership{}, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.TeamId)
	}
	var teams []models.Team
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&teams).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.Team, len(teams))
	for _, t := range teams {
		byID[t.Id] = t
	}

	out := make([]models.Membership, 0, len(members))
	for _, m := range members {
		if t, ok := byID[m.TeamId]; ok {
			out = append(out, models.Membership{Team: t, Role: m.Role})
		}
	}
	return out, nil
}

func (s *TeamStore) ListMembers(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	members := []models.TeamMember{}
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}
