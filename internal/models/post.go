package models

import "time"

// PostReport is a user report attached to a post, stored as a JSON array.
type PostReport struct {
	UserID     uint      `json:"user_id"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reported_at"`
}

// Post is a discussion thread inside a community. Posts are soft-deleted so
// moderation actions stay auditable; only non-deleted posts count toward a
// community's PostCount and block community deletion.
type Post struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CommunityID uint         `gorm:"not null;index" json:"community_id"`
	Community   *Community   `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	AuthorID    uint         `gorm:"not null;index" json:"author_id"`
	Author      *User        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title       string       `gorm:"size:300;not null" json:"title"`
	Content     string       `gorm:"type:text;not null" json:"content"`
	Reports     []PostReport `gorm:"serializer:json" json:"reports,omitempty"`
	IsDeleted   bool         `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty"`
	EditedAt    *time.Time   `json:"edited_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
