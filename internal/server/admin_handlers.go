package server

import (
	"strings"

	"discussify/internal/models"
	"discussify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAdminAnalytics handles GET /api/v1/admin/analytics
func (s *Server) GetAdminAnalytics(c *fiber.Ctx) error {
	analytics, err := s.adminService.GetAnalytics(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondData(c, fiber.StatusOK, analytics)
}

// GetAdminActivity handles GET /api/v1/admin/activity
func (s *Server) GetAdminActivity(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	activity, err := s.adminService.RecentActivity(c.UserContext(), limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondList(c, activity, len(activity))
}

// adminListEnvelope extends the success envelope with the total row count so
// the panel can paginate.
type adminListEnvelope struct {
	Success bool  `json:"success"`
	Count   int   `json:"count"`
	Total   int64 `json:"total"`
	Data    any   `json:"data"`
}

// GetAdminUsers handles GET /api/v1/admin/users
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 25)

	users, total, err := s.adminService.ListUsers(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(adminListEnvelope{Success: true, Count: len(users), Total: total, Data: users})
}

// UpdateAdminUser handles PATCH /api/v1/admin/users/:id
func (s *Server) UpdateAdminUser(c *fiber.Ctx) error {
	callerID := currentUserID(c)
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, svcErr := s.adminService.UpdateUser(c.UserContext(), callerID, userID, input)
	if svcErr != nil {
		return models.RespondWithAppError(c, svcErr)
	}
	return respondMessage(c, fiber.StatusOK, "User updated", user)
}

// DeleteAdminUser handles DELETE /api/v1/admin/users/:id
func (s *Server) DeleteAdminUser(c *fiber.Ctx) error {
	callerID := currentUserID(c)
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.adminService.DeleteUser(c.UserContext(), callerID, userID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusOK, "User deleted", nil)
}

// GetAdminCommunities handles GET /api/v1/admin/communities
func (s *Server) GetAdminCommunities(c *fiber.Ctx) error {
	p := parsePagination(c, 25)

	communities, total, err := s.adminService.ListCommunities(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(adminListEnvelope{Success: true, Count: len(communities), Total: total, Data: communities})
}

// GetAdminCommunityPosts handles GET /api/v1/admin/communities/:id/posts
func (s *Server) GetAdminCommunityPosts(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 25)

	posts, svcErr := s.adminService.ListCommunityPosts(c.UserContext(), communityID, p.Limit, p.Offset)
	if svcErr != nil {
		return models.RespondWithAppError(c, svcErr)
	}
	return respondList(c, posts, len(posts))
}

// UpdateAdminCommunity handles PATCH /api/v1/admin/communities/:id
func (s *Server) UpdateAdminCommunity(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.AdminUpdateCommunityInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	community, svcErr := s.adminService.UpdateCommunity(c.UserContext(), communityID, input)
	if svcErr != nil {
		return models.RespondWithAppError(c, svcErr)
	}
	return respondMessage(c, fiber.StatusOK, "Community updated", community)
}

// DeleteAdminCommunity handles DELETE /api/v1/admin/communities/:id
func (s *Server) DeleteAdminCommunity(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.adminService.DeleteCommunity(c.UserContext(), communityID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusOK, "Community deleted", nil)
}

// UpdateAdminPost handles PATCH /api/v1/admin/posts/:id
func (s *Server) UpdateAdminPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, svcErr := s.adminService.UpdatePost(c.UserContext(), postID, body.Title, body.Content)
	if svcErr != nil {
		return models.RespondWithAppError(c, svcErr)
	}
	return respondMessage(c, fiber.StatusOK, "Post updated", post)
}

// DeleteAdminPost handles DELETE /api/v1/admin/posts/:id
func (s *Server) DeleteAdminPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.adminService.DeletePost(c.UserContext(), postID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusOK, "Post deleted", nil)
}

// ReportAdminPost handles POST /api/v1/admin/posts/:id/report
func (s *Server) ReportAdminPost(c *fiber.Ctx) error {
	reporterID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.adminService.ReportPost(c.UserContext(), postID, reporterID, strings.TrimSpace(body.Reason)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusCreated, "Report recorded", nil)
}

// ResolveAdminPostReports handles POST /api/v1/admin/posts/:id/resolve-reports
func (s *Server) ResolveAdminPostReports(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.adminService.ResolveReports(c.UserContext(), postID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusOK, "Reports resolved", nil)
}
