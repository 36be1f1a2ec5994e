package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User represents an account on the dev server
type User struct {
	BaseModel
	Email         string    `json:"email" gorm:"unique;not null"`
	PasswordHash  string    `json:"-" gorm:"not null"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified" gorm:"not null;default:false"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// VerificationToken represents a one-time email verification link token.
// Consumed tokens are kept for auditing; expired unconsumed ones are
// purged periodically.
type VerificationToken struct {
	BaseModel
	Token      string     `json:"-" gorm:"unique;not null"`
	Email      string     `json:"email" gorm:"not null"`
	UserID     string     `json:"user_id" gorm:"not null"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	ConsumedAt *time.Time `json:"consumed_at"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the token is past its expiry
func (t *VerificationToken) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &VerificationToken{})
}
