package service

import (
	"context"
	"fmt"
	"strings"

	"discussify/internal/models"
	"discussify/internal/repository"
	"discussify/internal/validation"
)

// CommunityService provides community lifecycle and discovery logic.
type CommunityService struct {
	communityRepo repository.CommunityRepository
	userRepo      repository.UserRepository
	postRepo      repository.PostRepository
	membership    *MembershipService
	sink          NotificationSink
}

// NewCommunityService returns a new CommunityService.
func NewCommunityService(
	communityRepo repository.CommunityRepository,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	membership *MembershipService,
	sink NotificationSink,
) *CommunityService {
	return &CommunityService{
		communityRepo: communityRepo,
		userRepo:      userRepo,
		postRepo:      postRepo,
		membership:    membership,
		sink:          sink,
	}
}

// CreateCommunityInput carries the community creation fields.
type CreateCommunityInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	IsPrivate   bool     `json:"is_private"`
	CoverImage  string   `json:"cover_image"`
}

// UpdateCommunityInput carries the community edit fields. Nil pointers leave
// the field untouched.
type UpdateCommunityInput struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Categories  *[]string `json:"categories"`
	IsPrivate   *bool     `json:"is_private"`
	CoverImage  *string   `json:"cover_image"`
}

// CommunityDetail is the community projection returned to a caller, reduced
// for non-members of private communities.
type CommunityDetail struct {
	Community *models.Community `json:"community"`
	IsMember  bool              `json:"is_member"`
	Role      models.MemberRole `json:"role,omitempty"`
	// Reduced marks a private community stripped down to its public surface.
	Reduced bool `json:"reduced,omitempty"`
}

// Create creates a community; the creator becomes the sole admin member.
func (s *CommunityService) Create(ctx context.Context, creatorID uint, input CreateCommunityInput) (*models.Community, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, models.NewValidationError("Community name is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, models.NewValidationError("Community description is required")
	}

	slug := validation.Slugify(name)
	if err := validation.ValidateCommunitySlug(slug); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid community name: %v", err))
	}

	if _, err := s.userRepo.GetByID(ctx, creatorID); err != nil {
		return nil, err
	}

	visibility := models.VisibilityPublic
	if input.IsPrivate {
		visibility = models.VisibilityPrivate
	}

	community := &models.Community{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
		Categories:  input.Categories,
		Visibility:  visibility,
		IsPrivate:   input.IsPrivate,
		CoverImage:  input.CoverImage,
		IsActive:    true,
		AdminUserID: creatorID,
	}
	if err := s.communityRepo.Create(ctx, community); err != nil {
		return nil, err
	}

	emitBestEffort(ctx, s.sink, &models.Notification{
		UserID:        creatorID,
		Type:          models.NotificationTypeCommunity,
		Title:         fmt.Sprintf("%s is live!", community.Name),
		Message:       fmt.Sprintf("You created %s and are its admin.", community.Name),
		CommunityID:   &community.ID,
		CommunityName: community.Name,
		CommunitySlug: community.Slug,
		MemberCount:   community.MemberCount,
	})

	return community, nil
}

// Update edits a community. Only its admin may call this; renaming re-derives
// the slug.
func (s *CommunityService) Update(ctx context.Context, idOrSlug string, callerID uint, input UpdateCommunityInput) (*models.Community, error) {
	community, err := s.membership.ResolveCommunity(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if community.AdminUserID != callerID {
		return nil, models.NewForbiddenError("Only the community admin can edit this community")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, models.NewValidationError("Community name cannot be empty")
		}
		slug := validation.Slugify(name)
		if err := validation.ValidateCommunitySlug(slug); err != nil {
			return nil, models.NewValidationError(fmt.Sprintf("Invalid community name: %v", err))
		}
		community.Name = name
		community.Slug = slug
	}
	if input.Description != nil {
		if strings.TrimSpace(*input.Description) == "" {
			return nil, models.NewValidationError("Community description cannot be empty")
		}
		community.Description = strings.TrimSpace(*input.Description)
	}
	if input.Categories != nil {
		community.Categories = *input.Categories
	}
	if input.IsPrivate != nil {
		community.IsPrivate = *input.IsPrivate
		if *input.IsPrivate {
			community.Visibility = models.VisibilityPrivate
		} else {
			community.Visibility = models.VisibilityPublic
		}
	}
	if input.CoverImage != nil {
		community.CoverImage = *input.CoverImage
	}

	if err := s.communityRepo.Update(ctx, community); err != nil {
		return nil, err
	}
	return community, nil
}

// Detail returns the community projection for a caller. callerID == 0 means
// anonymous. Private communities expose a reduced projection to non-members:
// no member list, no admin identity.
func (s *CommunityService) Detail(ctx context.Context, idOrSlug string, callerID uint) (*CommunityDetail, error) {
	community, err := s.membership.ResolveCommunity(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	detail := &CommunityDetail{Community: community}
	if callerID != 0 {
		member, err := s.communityRepo.GetMember(ctx, community.ID, callerID)
		if err != nil {
			return nil, err
		}
		if member != nil {
			detail.IsMember = true
			detail.Role = member.Role
		}
	}

	private := community.IsPrivate || community.Visibility == models.VisibilityPrivate
	if private && !detail.IsMember {
		detail.Reduced = true
		reduced := &models.Community{
			ID:          community.ID,
			Name:        community.Name,
			Slug:        community.Slug,
			Description: community.Description,
			Categories:  community.Categories,
			Visibility:  community.Visibility,
			IsPrivate:   community.IsPrivate,
			CoverImage:  community.CoverImage,
			MemberCount: community.MemberCount,
			IsActive:    community.IsActive,
			CreatedAt:   community.CreatedAt,
		}
		detail.Community = reduced
		return detail, nil
	}

	members, err := s.communityRepo.ListMembers(ctx, community.ID)
	if err != nil {
		return nil, err
	}
	community.Members = members
	return detail, nil
}

// Discussions lists a community's posts. Private communities are gated on
// membership.
func (s *CommunityService) Discussions(ctx context.Context, idOrSlug string, callerID uint, limit, offset int) ([]models.Post, error) {
	community, err := s.membership.ResolveCommunity(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if community.IsPrivate || community.Visibility == models.VisibilityPrivate {
		if callerID == 0 {
			return nil, models.NewUnauthorizedError("Sign in to view this private community")
		}
		isMember, err := s.membership.IsMember(ctx, community, callerID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, models.NewForbiddenError("Only members can view discussions in this private community")
		}
	}

	return s.postRepo.ListByCommunity(ctx, community.ID, limit, offset)
}

// MyCommunities lists the communities the caller belongs to.
func (s *CommunityService) MyCommunities(ctx context.Context, userID uint) ([]models.Community, error) {
	return s.communityRepo.ForUser(ctx, userID)
}

// Popular lists active public communities by member count.
func (s *CommunityService) Popular(ctx context.Context, limit, offset int) ([]models.Community, error) {
	return s.communityRepo.Popular(ctx, limit, offset)
}

// Recommended lists public communities matching the caller's interests,
// excluding ones already joined.
func (s *CommunityService) Recommended(ctx context.Context, userID uint, limit int) ([]models.Community, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.communityRepo.Recommended(ctx, userID, user.Interests, limit)
}

// Discover lists public communities the given user neither joined nor
// administers.
func (s *CommunityService) Discover(ctx context.Context, userID uint, limit, offset int) ([]models.Community, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.communityRepo.Discover(ctx, userID, limit, offset)
}
