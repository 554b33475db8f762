package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeamRole string

const (
	RoleOwner  TeamRole = "owner"
	RoleAdmin  TeamRole = "admin"
	RoleMember TeamRole = "member"
)

// CanManage reports whether the role may invite or remove members.
func (r TeamRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

type Team struct {
	Id        string       `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"not null"`
	Slug      string       `json:"slug" gorm:"uniqueIndex;not null"`
	Members   []TeamMember `json:"-" gorm:"foreignKey:TeamId;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (team *Team) BeforeCreate(tx *gorm.DB) (err error) {
	if team.Id == "" {
		team.Id = uuid.NewString()
	}
	return
}

type TeamMember struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	TeamId    string    `json:"teamId" gorm:"not null;uniqueIndex:idx_team_members_user_team,priority:2"`
	UserId    string    `json:"userId" gorm:"not null;uniqueIndex:idx_team_members_user_team,priority:1"`
	User      User      `json:"user" gorm:"foreignKey:UserId;references:Id"`
	Role      TeamRole  `json:"role" gorm:"type:varchar(16);not null"`
	CreatedAt time.Time `json:"createdAt"`
}

func (member *TeamMember) BeforeCreate(tx *gorm.DB) (err error) {
	if member.Id == "" {
		member.Id = uuid.NewString()
	}
	return
}

// Membership is a team as seen by one of its members.
type Membership struct {
	Team
	Role TeamRole `json:"role"`
}
