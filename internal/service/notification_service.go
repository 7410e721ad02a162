package service

import (
	"context"

	"discussify/internal/models"
	"discussify/internal/repository"
)

// NotificationService exposes a user's notification feed.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationService returns a new NotificationService.
func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	return s.notificationRepo.ListForUser(ctx, userID, limit, offset)
}

// MarkRead marks one of the caller's notifications as seen. Reading an
// invitation does not consume it; only a join does.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	return s.notificationRepo.MarkRead(ctx, notificationID, userID)
}
