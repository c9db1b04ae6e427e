package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserType string

const (
	UserTypeClient     UserType = "client"
	UserTypeConsultant UserType = "consultant"
)

func (t UserType) Valid() bool {
	return t == UserTypeClient || t == UserTypeConsultant
}

// Profile is the account record. Its ID is the subject of issued tokens.
type Profile struct {
	ID           string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Email        string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"column:full_name" json:"full_name"`
	UserType     UserType  `gorm:"column:user_type;not null;default:client" json:"user_type"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// RevokedToken marks a signed-out token id until its natural expiry.
type RevokedToken struct {
	TokenID   string    `gorm:"column:token_id;primaryKey;size:36"`
	ProfileID string    `gorm:"column:profile_id;index"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
	RevokedAt time.Time `gorm:"column:revoked_at"`
}

func (RevokedToken) TableName() string { return "revoked_tokens" }
