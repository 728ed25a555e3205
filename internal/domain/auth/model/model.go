package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of a user within the platform.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleTenant  Role = "TENANT"
)

// DefaultRole is assigned when registration does not specify a role.
// Tenant is the lowest-privilege level.
const DefaultRole = RoleTenant

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleManager, RoleTenant:
		return true
	}
	return false
}

// User is the persisted credential record. Users are never hard-deleted;
// deactivation flips IsActive.
type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email           string    `gorm:"size:320;uniqueIndex;not null"`
	NationalID      *string   `gorm:"size:32;uniqueIndex"`
	PasswordHash    string    `gorm:"size:255;not null"`
	FirstName       string    `gorm:"size:120;not null"`
	LastName        string    `gorm:"size:120;not null"`
	Phone           string    `gorm:"size:32"`
	Role            Role      `gorm:"size:16;not null;default:TENANT"`
	IsActive        bool      `gorm:"not null;default:true"`
	EmailVerified   bool      `gorm:"not null;default:false"`
	EmailVerifiedAt *time.Time
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (User) TableName() string { return "users" }

// RefreshToken is a storage-backed, single-use session credential.
// Consuming it via rotation deletes the row and inserts a replacement.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Token     string    `gorm:"size:512;uniqueIndex;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPair is the result of every successful token issuance.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	UserID       uuid.UUID
}

// Identity is the verified subject attached to a request after the
// authentication middleware accepts its access token.
type Identity struct {
	ID        uuid.UUID
	Email     string
	Role      Role
	FirstName string
	LastName  string
}
