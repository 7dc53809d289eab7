package models

import (
	"time"

	"github.com/google/uuid"
)

// ChildProfile belongs to exactly one parent user.
type ChildProfile struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ParentID     uuid.UUID `gorm:"type:uuid;not null;index" json:"parent_id"`
	FirstName    string    `gorm:"size:50;not null" json:"first_name"`
	AgeGroup     string    `gorm:"size:10;not null" json:"age_group"`
	Relationship string    `gorm:"size:30;not null" json:"relationship"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Parent       User      `gorm:"foreignKey:ParentID" json:"-"`
}

func (ChildProfile) TableName() string {
	return "child_profiles"
}
