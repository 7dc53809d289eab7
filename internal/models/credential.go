package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential backs the self-hosted identity provider. Its ID is the
// external id linked from users.external_id.
type Credential struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email            *string    `gorm:"size:255;uniqueIndex" json:"email"`
	Phone            *string    `gorm:"size:32;uniqueIndex" json:"phone"`
	PasswordHash     string     `gorm:"size:255" json:"-"`
	FirstName        string     `gorm:"size:50" json:"first_name"`
	LastName         string     `gorm:"size:50" json:"last_name"`
	Role             string     `gorm:"size:20" json:"role"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	PhoneConfirmedAt *time.Time `json:"phone_confirmed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Credential) TableName() string {
	return "auth_credentials"
}

// OTPCode is a single-use passcode. Only the hash is stored.
type OTPCode struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Target    string    `gorm:"size:255;not null;index" json:"target"`
	CodeHash  string    `gorm:"size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (OTPCode) TableName() string {
	return "auth_otp_codes"
}
