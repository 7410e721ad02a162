package server

import (
	"discussify/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/v1/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID := currentUserID(c)
	p := parsePagination(c, 50)

	list, err := s.notificationService.List(c.UserContext(), userID, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondList(c, list, len(list))
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read. Marking an
// invitation as read does not consume it.
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	userID := currentUserID(c)
	notificationID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.notificationService.MarkRead(c.UserContext(), userID, notificationID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusOK, "Notification marked as read", nil)
}
