package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan is the billing tier a user is entitled to.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
	PlanTeam Plan = "team"
)

const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
)

// FreeCustomerPrefix marks placeholder customer ids created at signup,
// before the user ever reached the payment processor.
const FreeCustomerPrefix = "cus_free_"

// Subscription mirrors the payment processor's view of a user's plan.
// It is written by signup and by billing webhooks, and only read by the review core.
type Subscription struct {
	Id                     string     `json:"id" gorm:"primaryKey"`
	UserId                 string     `json:"-" gorm:"uniqueIndex;not null"`
	StripeCustomerId       string     `json:"-" gorm:"uniqueIndex;not null"`
	StripeSubscriptionId   *string    `json:"-" gorm:"index"`
	StripePriceId          *string    `json:"-"`
	StripeCurrentPeriodEnd *time.Time `json:"periodEnd"`
	Plan                   Plan       `json:"plan" gorm:"type:varchar(20);not null;default:'free'"`
	Status                 string     `json:"status" gorm:"type:varchar(32)"`
	CreatedAt              time.Time  `json:"-"`
	UpdatedAt              time.Time  `json:"-"`
}

func (sub *Subscription) BeforeCreate(tx *gorm.DB) (err error) {
	if sub.Id == "" {
		sub.Id = uuid.NewString()
	}
	return
}

// HasPlaceholderCustomer reports whether the customer id was never created at the processor.
func (sub *Subscription) HasPlaceholderCustomer() bool {
	return sub.StripeCustomerId == "" || strings.HasPrefix(sub.StripeCustomerId, FreeCustomerPrefix)
}
