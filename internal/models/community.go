package models

import "time"

// CommunityVisibility controls who can see and join a community.
type CommunityVisibility string

const (
	// VisibilityPublic communities are listed and joinable by anyone.
	VisibilityPublic CommunityVisibility = "public"
	// VisibilityPrivate communities require an invitation to join.
	VisibilityPrivate CommunityVisibility = "private"
	// VisibilityHidden communities are excluded from listings entirely.
	VisibilityHidden CommunityVisibility = "hidden"
)

// MemberRole is a member's role inside a single community.
type MemberRole string

const (
	// MemberRoleAdmin is the community owner role.
	MemberRoleAdmin MemberRole = "admin"
	// MemberRoleModerator can invite and moderate within the community.
	MemberRoleModerator MemberRole = "moderator"
	// MemberRoleMember is the default role.
	MemberRoleMember MemberRole = "member"
)

// Community is a named discussion group owned by exactly one admin.
//
// MemberCount is a cached projection of the community_members relation and is
// recomputed from COUNT(*) after every membership mutation.
type Community struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	Name        string              `gorm:"size:120;uniqueIndex;not null" json:"name"`
	Slug        string              `gorm:"size:140;uniqueIndex;not null" json:"slug"`
	Description string              `gorm:"type:text;not null" json:"description"`
	Categories  []string            `gorm:"serializer:json" json:"categories"`
	Visibility  CommunityVisibility `gorm:"type:varchar(20);not null;default:'public'" json:"visibility"`
	IsPrivate   bool                `gorm:"not null;default:false" json:"is_private"`
	CoverImage  string              `json:"cover_image"`
	MemberCount int64               `gorm:"not null;default:0" json:"member_count"`
	PostCount   int64               `gorm:"not null;default:0" json:"post_count"`
	IsActive    bool                `gorm:"not null;default:true;index" json:"is_active"`
	AdminUserID uint                `gorm:"not null;index" json:"admin_user_id"`
	AdminUser   *User               `gorm:"foreignKey:AdminUserID" json:"admin,omitempty"`
	Members     []CommunityMember   `gorm:"foreignKey:CommunityID" json:"members,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Community) TableName() string {
	return "communities"
}

// CommunityMember maps users to communities and tracks the per-community role.
// The composite primary key makes concurrent joins collapse into a unique
// violation instead of a duplicate row.
type CommunityMember struct {
	CommunityID uint       `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	UserID      uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role        MemberRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CommunityBan records users barred from joining a community. A banned user
// must never simultaneously hold a membership row.
type CommunityBan struct {
	CommunityID uint      `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	UserID      uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Reason      string    `gorm:"type:text" json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}
