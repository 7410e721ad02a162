package models

import "time"

// NotificationType classifies a notification.
type NotificationType string

const (
	// NotificationTypeCommunityInvite is an invitation to join a private community.
	NotificationTypeCommunityInvite NotificationType = "COMMUNITY_INVITE"
	// NotificationTypeWelcome greets a user after joining a community.
	NotificationTypeWelcome NotificationType = "welcome"
	// NotificationTypeInfo is a generic informational notification.
	NotificationTypeInfo NotificationType = "info"
	// NotificationTypeCommunity reports community lifecycle events to the owner.
	NotificationTypeCommunity NotificationType = "community"
)

// InviteStatus is the lifecycle of a community invitation. It is tracked
// separately from Read: a user can see an invitation without accepting it.
type InviteStatus string

const (
	// InviteStatusPending invitations gate joins into private communities.
	InviteStatusPending InviteStatus = "pending"
	// InviteStatusAccepted invitations were consumed by a join.
	InviteStatusAccepted InviteStatus = "accepted"
	// InviteStatusRevoked invitations were withdrawn and no longer authorize a join.
	InviteStatusRevoked InviteStatus = "revoked"
)

// Notification is a message addressed to one user. Community invitations are
// notifications of type COMMUNITY_INVITE with an InviteStatus lifecycle.
type Notification struct {
	ID      uint             `gorm:"primaryKey" json:"id"`
	UserID  uint             `gorm:"not null;index" json:"user_id"`
	User    *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type    NotificationType `gorm:"type:varchar(30);not null;index" json:"type"`
	Title   string           `gorm:"size:200;not null" json:"title"`
	Message string           `gorm:"type:text;not null" json:"message"`
	Read    bool             `gorm:"not null;default:false;index" json:"read"`

	// Invitation lifecycle, only meaningful for COMMUNITY_INVITE.
	InviteStatus InviteStatus `gorm:"type:varchar(20);index" json:"invite_status,omitempty"`

	// Denormalized payload mirroring the community reference at emission time.
	CommunityID   *uint  `gorm:"index" json:"community_id,omitempty"`
	CommunityName string `json:"community_name,omitempty"`
	CommunitySlug string `json:"community_slug,omitempty"`
	InviterID     *uint  `json:"inviter_id,omitempty"`
	InviterName   string `json:"inviter_name,omitempty"`
	MemberCount   int64  `json:"member_count,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
