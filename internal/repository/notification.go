package repository

import (
	"context"
	"errors"

	"discussify/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines persistence operations for notifications,
// including the invitation lifecycle rows.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uint) error
	PendingInvite(ctx context.Context, userID, communityID uint) (*models.Notification, error)
	RevokePendingInvites(ctx context.Context, communityID uint) error
	RecentActivity(ctx context.Context, limit int) ([]models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	var notifications []models.Notification
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifications).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return notifications, nil
}

// MarkRead marks a notification as seen. It does not touch the invitation
// status; only a join consumes an invite.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint) error {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

// PendingInvite returns the pending community invitation for a (user,
// community) pair, or nil when none exists.
func (r *notificationRepository) PendingInvite(ctx context.Context, userID, communityID uint) (*models.Notification, error) {
	var invite models.Notification
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ? AND type = ? AND invite_status = ?",
			userID, communityID, models.NotificationTypeCommunityInvite, models.InviteStatusPending).
		Order("created_at DESC").
		First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &invite, nil
}

// RevokePendingInvites withdraws every pending invitation into a community.
// Called when the community is deleted so stale invites stop authorizing joins.
func (r *notificationRepository) RevokePendingInvites(ctx context.Context, communityID uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("community_id = ? AND type = ? AND invite_status = ?",
			communityID, models.NotificationTypeCommunityInvite, models.InviteStatusPending).
		Update("invite_status", models.InviteStatusRevoked).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) RecentActivity(ctx context.Context, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return notifications, nil
}
