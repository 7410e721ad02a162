package server

import (
	"strings"

	"discussify/internal/models"
	"discussify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyCommunities handles GET /api/v1/communities/my-communities
func (s *Server) GetMyCommunities(c *fiber.Ctx) error {
	userID := currentUserID(c)

	communities, err := s.communityService.MyCommunities(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondList(c, communities, len(communities))
}

// GetPopularCommunities handles GET /api/v1/communities/popular
func (s *Server) GetPopularCommunities(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	communities, err := s.communityService.Popular(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondList(c, communities, len(communities))
}

// GetRecommendedCommunities handles GET /api/v1/communities/recommended
func (s *Server) GetRecommendedCommunities(c *fiber.Ctx) error {
	userID := currentUserID(c)
	p := parsePagination(c, 10)

	communities, err := s.communityService.Recommended(c.UserContext(), userID, p.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondList(c, communities, len(communities))
}

// DiscoverCommunities handles GET /api/v1/communities/discover/:userId
func (s *Server) DiscoverCommunities(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	communities, svcErr := s.communityService.Discover(c.UserContext(), userID, p.Limit, p.Offset)
	if svcErr != nil {
		return models.RespondWithAppError(c, svcErr)
	}
	return respondList(c, communities, len(communities))
}

// GetCommunity handles GET /api/v1/communities/:idOrSlug. Works with or
// without authentication; private communities show non-members a reduced
// projection.
func (s *Server) GetCommunity(c *fiber.Ctx) error {
	idOrSlug := strings.TrimSpace(c.Params("idOrSlug"))
	if idOrSlug == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Community ID or slug is required"))
	}

	callerID, _ := s.optionalUserID(c)
	detail, err := s.communityService.Detail(c.UserContext(), idOrSlug, callerID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondData(c, fiber.StatusOK, detail)
}

// GetCommunityDiscussions handles GET /api/v1/communities/:idOrSlug/discussions
func (s *Server) GetCommunityDiscussions(c *fiber.Ctx) error {
	idOrSlug := strings.TrimSpace(c.Params("idOrSlug"))
	p := parsePagination(c, 20)

	callerID, _ := s.optionalUserID(c)
	posts, err := s.communityService.Discussions(c.UserContext(), idOrSlug, callerID, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondList(c, posts, len(posts))
}

// CreateCommunity handles POST /api/v1/communities/create
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var input service.CreateCommunityInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	community, err := s.communityService.Create(c.UserContext(), userID, input)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusCreated, "Community created", community)
}

// JoinCommunity handles POST /api/v1/communities/:idOrSlug/join
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	userID := currentUserID(c)
	idOrSlug := strings.TrimSpace(c.Params("idOrSlug"))

	result, err := s.membershipService.Join(c.UserContext(), idOrSlug, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusOK, "Joined community", result)
}

// LeaveCommunity handles POST /api/v1/communities/:idOrSlug/leave
func (s *Server) LeaveCommunity(c *fiber.Ctx) error {
	userID := currentUserID(c)
	idOrSlug := strings.TrimSpace(c.Params("idOrSlug"))

	result, err := s.membershipService.Leave(c.UserContext(), idOrSlug, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusOK, "Left community", result)
}

// InviteToCommunity handles POST /api/v1/communities/:idOrSlug/invite
func (s *Server) InviteToCommunity(c *fiber.Ctx) error {
	userID := currentUserID(c)
	idOrSlug := strings.TrimSpace(c.Params("idOrSlug"))

	var body struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	body.Email = strings.TrimSpace(body.Email)
	if body.Email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("email is required"))
	}

	invite, err := s.membershipService.Invite(c.UserContext(), idOrSlug, userID, body.Email)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusCreated, "Invitation sent", invite)
}

// UpdateCommunity handles PATCH /api/v1/communities/:idOrSlug
func (s *Server) UpdateCommunity(c *fiber.Ctx) error {
	userID := currentUserID(c)
	idOrSlug := strings.TrimSpace(c.Params("idOrSlug"))

	var input service.UpdateCommunityInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	community, err := s.communityService.Update(c.UserContext(), idOrSlug, userID, input)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondMessage(c, fiber.StatusOK, "Community updated", community)
}
