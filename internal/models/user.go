package models

import "time"

// UserRole is the platform-level role, distinct from per-community member roles.
type UserRole string

const (
	// UserRoleMember is the default platform role.
	UserRoleMember UserRole = "user"
	// UserRoleModerator can moderate content platform-wide.
	UserRoleModerator UserRole = "moderator"
	// UserRoleAdmin can access the admin panel.
	UserRoleAdmin UserRole = "admin"
)

// User represents a registered Discussify account.
//
// Joined communities are not stored on the user row; they are derived from
// community_members so the membership relation has a single source of truth.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:40;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Avatar    string    `json:"avatar"`
	Role      UserRole  `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Interests []string  `gorm:"serializer:json" json:"interests"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the platform admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
