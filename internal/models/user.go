package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdult = "adult"
	RoleChild = "child"

	SubscriptionFree       = "free"
	SubscriptionIndividual = "individual"
	SubscriptionFamily     = "family"
)

// User is the local profile row reconciled from the identity provider.
// Verification flags live with the provider and are not stored here.
type User struct {
	ID                    uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email                 *string    `gorm:"size:255;uniqueIndex" json:"email"`
	Phone                 *string    `gorm:"size:32;index" json:"phone"`
	ExternalID            *string    `gorm:"size:255;uniqueIndex" json:"-"`
	Role                  string     `gorm:"size:20;not null;default:'adult'" json:"role"`
	StripeCustomerID      *string    `gorm:"size:255" json:"-"`
	SubscriptionStatus    string     `gorm:"size:20;not null;default:'free';index" json:"subscription_status"`
	SubscriptionExpires   *time.Time `json:"subscription_expires"`
	ParentConsentVerified bool       `gorm:"not null;default:false" json:"parent_consent_verified"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
