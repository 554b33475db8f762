package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKey authenticates programmatic review requests.
// Only a SHA-256 hash of the secret is stored; Prefix is kept for display.
type APIKey struct {
	Id         string     `json:"id" gorm:"primaryKey"`
	UserId     string     `json:"-" gorm:"index;not null"`
	Name       string     `json:"name" gorm:"size:128;not null"`
	KeyHash    string     `json:"-" gorm:"size:64;uniqueIndex;not null"`
	Prefix     string     `json:"prefix" gorm:"size:16;not null"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
}

func (key *APIKey) BeforeCreate(tx *gorm.DB) (err error) {
	if key.Id == "" {
		key.Id = uuid.NewString()
	}
	return
}
