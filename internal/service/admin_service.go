package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"discussify/internal/models"
	"discussify/internal/repository"
	"discussify/internal/validation"
)

// AdminService implements the moderation panel: analytics, user management
// with bulk membership edits, community deactivation, and post moderation.
type AdminService struct {
	communityRepo    repository.CommunityRepository
	userRepo         repository.UserRepository
	postRepo         repository.PostRepository
	notificationRepo repository.NotificationRepository
	membership       *MembershipService
}

// NewAdminService returns a new AdminService.
func NewAdminService(
	communityRepo repository.CommunityRepository,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	notificationRepo repository.NotificationRepository,
	membership *MembershipService,
) *AdminService {
	return &AdminService{
		communityRepo:    communityRepo,
		userRepo:         userRepo,
		postRepo:         postRepo,
		notificationRepo: notificationRepo,
		membership:       membership,
	}
}

// Analytics aggregates the platform totals shown on the admin dashboard.
type Analytics struct {
	ActiveUsers       int64 `json:"active_users"`
	ActiveCommunities int64 `json:"active_communities"`
	ActivePosts       int64 `json:"active_posts"`
	NewUsersLast7Days int64 `json:"new_users_last_7_days"`
}

// GetAnalytics computes the dashboard totals. Counts use the active filters
// consistently: deactivated users and soft-deleted content are excluded.
func (s *AdminService) GetAnalytics(ctx context.Context) (*Analytics, error) {
	activeUsers, err := s.userRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	activeCommunities, err := s.communityRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	activePosts, err := s.postRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	newUsers, err := s.userRepo.CountCreatedSince(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	return &Analytics{
		ActiveUsers:       activeUsers,
		ActiveCommunities: activeCommunities,
		ActivePosts:       activePosts,
		NewUsersLast7Days: newUsers,
	}, nil
}

// AdminUser is a user row augmented with the joined-communities projection.
type AdminUser struct {
	models.User
	JoinedCommunities []models.Community `json:"joined_communities"`
}

// ListUsers returns a page of users with their joined communities.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]AdminUser, int64, error) {
	users, total, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	result := make([]AdminUser, 0, len(users))
	for _, u := range users {
		joined, err := s.userRepo.JoinedCommunities(ctx, u.ID)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, AdminUser{User: u, JoinedCommunities: joined})
	}
	return result, total, nil
}

// UpdateUserInput carries the admin user-edit fields. The membership lists
// hold community IDs or slugs.
type UpdateUserInput struct {
	Role                *models.UserRole `json:"role"`
	IsActive            *bool            `json:"is_active"`
	Bio                 *string          `json:"bio"`
	CommunitiesToRemove []string         `json:"communities_to_remove"`
	CommunitiesToAdd    []string         `json:"communities_to_add"`
}

// UpdateUser applies an admin edit. Membership changes go through the same
// administrative add/remove variants as every other mutation, so the member
// list and joined-communities projection cannot diverge. Admins cannot edit
// their own account here.
func (s *AdminService) UpdateUser(ctx context.Context, callerID, userID uint, input UpdateUserInput) (*AdminUser, error) {
	if callerID == userID {
		return nil, models.NewForbiddenError("Admins cannot modify their own account from the admin panel")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Role != nil {
		switch *input.Role {
		case models.UserRoleMember, models.UserRoleModerator, models.UserRoleAdmin:
			user.Role = *input.Role
		default:
			return nil, models.NewValidationError(fmt.Sprintf("Unknown role %q", *input.Role))
		}
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.Bio != nil {
		user.Bio = strings.TrimSpace(*input.Bio)
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	for _, idOrSlug := range input.CommunitiesToRemove {
		community, err := s.communityRepo.Resolve(ctx, idOrSlug)
		if err != nil {
			return nil, err
		}
		if err := s.membership.RemoveMember(ctx, community, userID); err != nil {
			return nil, err
		}
	}
	for _, idOrSlug := range input.CommunitiesToAdd {
		community, err := s.communityRepo.Resolve(ctx, idOrSlug)
		if err != nil {
			return nil, err
		}
		if err := s.membership.AddMember(ctx, community, userID, models.MemberRoleMember); err != nil {
			return nil, err
		}
	}

	joined, err := s.userRepo.JoinedCommunities(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AdminUser{User: *user, JoinedCommunities: joined}, nil
}

// DeleteUser hard-deletes an account: memberships stripped, authored posts
// soft-deleted, notifications dropped. Self-deletion is rejected.
func (s *AdminService) DeleteUser(ctx context.Context, callerID, userID uint) error {
	if callerID == userID {
		return models.NewForbiddenError("Admins cannot delete their own account")
	}
	return s.userRepo.HardDelete(ctx, userID)
}

// ListCommunities returns a page of active communities.
func (s *AdminService) ListCommunities(ctx context.Context, limit, offset int) ([]models.Community, int64, error) {
	return s.communityRepo.ListActive(ctx, limit, offset)
}

// AdminUpdateCommunityInput extends the community edit surface with fields
// reserved for platform admins.
type AdminUpdateCommunityInput struct {
	UpdateCommunityInput
	Visibility *models.CommunityVisibility `json:"visibility"`
	IsActive   *bool                       `json:"is_active"`
}

// UpdateCommunity applies a platform-admin community edit, including
// visibility and activation changes a community admin cannot make.
func (s *AdminService) UpdateCommunity(ctx context.Context, communityID uint, input AdminUpdateCommunityInput) (*models.Community, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		// Renames follow the same rules as the community admin's edit path:
		// non-empty name, slug re-derived and validated.
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
		community.Description = strings.TrimSpace(*input.Description)
	}
	if input.Categories != nil {
		community.Categories = *input.Categories
	}
	if input.CoverImage != nil {
		community.CoverImage = *input.CoverImage
	}
	if input.Visibility != nil {
		switch *input.Visibility {
		case models.VisibilityPublic, models.VisibilityPrivate, models.VisibilityHidden:
			community.Visibility = *input.Visibility
			community.IsPrivate = *input.Visibility == models.VisibilityPrivate
		default:
			return nil, models.NewValidationError(fmt.Sprintf("Unknown visibility %q", *input.Visibility))
		}
	} else if input.IsPrivate != nil {
		community.IsPrivate = *input.IsPrivate
		if *input.IsPrivate {
			community.Visibility = models.VisibilityPrivate
		} else {
			community.Visibility = models.VisibilityPublic
		}
	}
	if input.IsActive != nil {
		community.IsActive = *input.IsActive
	}

	if err := s.communityRepo.Update(ctx, community); err != nil {
		return nil, err
	}
	return community, nil
}

// DeleteCommunity soft-deletes a community. The deletion is gated on zero
// active posts; memberships are cleared and pending invitations revoked so
// neither authorizes anything afterwards.
func (s *AdminService) DeleteCommunity(ctx context.Context, communityID uint) error {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}

	activePosts, err := s.postRepo.CountActiveByCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	if activePosts > 0 {
		return models.NewConflictError(fmt.Sprintf("Community still has %d active posts; delete them first", activePosts))
	}

	if err := s.notificationRepo.RevokePendingInvites(ctx, communityID); err != nil {
		return err
	}
	return s.communityRepo.SoftDelete(ctx, community)
}

// ListCommunityPosts returns a community's non-deleted posts.
func (s *AdminService) ListCommunityPosts(ctx context.Context, communityID uint, limit, offset int) ([]models.Post, error) {
	if _, err := s.communityRepo.GetByID(ctx, communityID); err != nil {
		return nil, err
	}
	return s.postRepo.ListByCommunity(ctx, communityID, limit, offset)
}

// UpdatePost edits a post's content on behalf of a moderator.
func (s *AdminService) UpdatePost(ctx context.Context, postID uint, title, content *string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, models.NewConflictError("Post has been deleted")
	}

	changed := false
	if title != nil && strings.TrimSpace(*title) != "" {
		post.Title = strings.TrimSpace(*title)
		changed = true
	}
	if content != nil && strings.TrimSpace(*content) != "" {
		post.Content = strings.TrimSpace(*content)
		changed = true
	}
	if changed {
		now := time.Now()
		post.EditedAt = &now
		if err := s.postRepo.Update(ctx, post); err != nil {
			return nil, err
		}
	}
	return post, nil
}

// DeletePost soft-deletes a post and refreshes the community post count.
func (s *AdminService) DeletePost(ctx context.Context, postID uint) error {
	return s.postRepo.SoftDelete(ctx, postID)
}

// ReportPost appends a moderation report to a post.
func (s *AdminService) ReportPost(ctx context.Context, postID, reporterID uint, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return models.NewValidationError("Report reason is required")
	}
	return s.postRepo.AddReport(ctx, postID, models.PostReport{
		UserID:     reporterID,
		Reason:     strings.TrimSpace(reason),
		ReportedAt: time.Now(),
	})
}

// ResolveReports clears a post's reports after moderation.
func (s *AdminService) ResolveReports(ctx context.Context, postID uint) error {
	return s.postRepo.ClearReports(ctx, postID)
}

// RecentActivity returns the latest notifications across all users as an
// activity feed.
func (s *AdminService) RecentActivity(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notificationRepo.RecentActivity(ctx, limit)
}
