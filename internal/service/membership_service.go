// Package service implements the business logic layer for the application.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"discussify/internal/middleware"
	"discussify/internal/models"
	"discussify/internal/repository"
)

// NotificationSink persists a notification and pushes it to the recipient.
// Membership operations treat emission as a best-effort side effect: a sink
// failure is logged and counted, never propagated, never retried.
type NotificationSink interface {
	Emit(ctx context.Context, notification *models.Notification) error
}

// MembershipService owns every mutation of the community membership relation
// and the predicates over it.
type MembershipService struct {
	communityRepo    repository.CommunityRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	sink             NotificationSink
}

// NewMembershipService returns a new MembershipService.
func NewMembershipService(
	communityRepo repository.CommunityRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	sink NotificationSink,
) *MembershipService {
	return &MembershipService{
		communityRepo:    communityRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		sink:             sink,
	}
}

// MembershipResult reports the state of a community after a membership change.
type MembershipResult struct {
	CommunityID   uint   `json:"community_id"`
	CommunitySlug string `json:"community_slug"`
	MemberCount   int64  `json:"member_count"`
}

// ResolveCommunity looks a community up by ID or slug. Inactive communities
// resolve as not found for non-admin surfaces.
func (s *MembershipService) ResolveCommunity(ctx context.Context, idOrSlug string) (*models.Community, error) {
	community, err := s.communityRepo.Resolve(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !community.IsActive {
		return nil, models.NewNotFoundError("Community", idOrSlug)
	}
	return community, nil
}

// IsMember reports whether the user holds a membership row in the community.
func (s *MembershipService) IsMember(ctx context.Context, community *models.Community, userID uint) (bool, error) {
	member, err := s.communityRepo.GetMember(ctx, community.ID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

// IsCommunityAdmin reports whether the user holds the admin role in the community.
func (s *MembershipService) IsCommunityAdmin(ctx context.Context, community *models.Community, userID uint) (bool, error) {
	member, err := s.communityRepo.GetMember(ctx, community.ID, userID)
	if err != nil {
		return false, err
	}
	return member != nil && member.Role == models.MemberRoleAdmin, nil
}

// Join executes the join workflow. Preconditions are checked in order and the
// first failure wins: ban, existing membership, then the invitation gate for
// private communities. A consumed invitation is accepted in the same
// transaction as the membership insert.
func (s *MembershipService) Join(ctx context.Context, idOrSlug string, userID uint) (*MembershipResult, error) {
	community, err := s.ResolveCommunity(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	banned, err := s.communityRepo.IsBanned(ctx, community.ID, userID)
	if err != nil {
		return nil, err
	}
	if banned {
		recordMembership("join", "banned")
		return nil, models.NewForbiddenError("You are banned from this community")
	}

	member, err := s.communityRepo.GetMember(ctx, community.ID, userID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		recordMembership("join", "already_member")
		return nil, models.NewConflictError("You are already a member of this community")
	}

	var consumeInviteID *uint
	if community.IsPrivate || community.Visibility == models.VisibilityPrivate {
		invite, err := s.notificationRepo.PendingInvite(ctx, userID, community.ID)
		if err != nil {
			return nil, err
		}
		if invite == nil {
			recordMembership("join", "invite_required")
			return nil, models.NewForbiddenError("An invitation is required to join this private community")
		}
		consumeInviteID = &invite.ID
	}

	if err := s.communityRepo.AddMember(ctx, community, userID, models.MemberRoleMember, consumeInviteID); err != nil {
		recordMembership("join", "error")
		return nil, err
	}
	recordMembership("join", "success")

	s.emitBestEffort(ctx, &models.Notification{
		UserID:        userID,
		Type:          models.NotificationTypeWelcome,
		Title:         fmt.Sprintf("Welcome to %s!", community.Name),
		Message:       fmt.Sprintf("You are now a member of %s.", community.Name),
		CommunityID:   &community.ID,
		CommunityName: community.Name,
		CommunitySlug: community.Slug,
		MemberCount:   community.MemberCount,
	})
	if community.AdminUserID != userID {
		s.emitBestEffort(ctx, &models.Notification{
			UserID:        community.AdminUserID,
			Type:          models.NotificationTypeInfo,
			Title:         "New member",
			Message:       fmt.Sprintf("%s joined %s.", user.Username, community.Name),
			CommunityID:   &community.ID,
			CommunityName: community.Name,
			CommunitySlug: community.Slug,
			MemberCount:   community.MemberCount,
		})
	}

	return &MembershipResult{
		CommunityID:   community.ID,
		CommunitySlug: community.Slug,
		MemberCount:   community.MemberCount,
	}, nil
}

// Leave executes the leave workflow. The community admin may leave only when
// another member already holds the admin role; ownership then transfers to
// the longest-standing such member so the community is never admin-less.
func (s *MembershipService) Leave(ctx context.Context, idOrSlug string, userID uint) (*MembershipResult, error) {
	community, err := s.ResolveCommunity(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	member, err := s.communityRepo.GetMember(ctx, community.ID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		recordMembership("leave", "not_member")
		return nil, models.NewConflictError("You are not a member of this community")
	}

	var successorID uint
	if community.AdminUserID == userID {
		if community.MemberCount == 1 {
			recordMembership("leave", "sole_admin")
			return nil, models.NewForbiddenError("As the sole member and admin, delete the community or transfer ownership instead of leaving")
		}
		successor, err := s.communityRepo.EarliestOtherAdmin(ctx, community.ID, userID)
		if err != nil {
			return nil, err
		}
		if successor == nil {
			recordMembership("leave", "no_successor")
			return nil, models.NewForbiddenError("Promote another member to admin before leaving")
		}
		successorID = successor.UserID
		if err := s.communityRepo.ReplaceAdmin(ctx, community, userID, successorID); err != nil {
			recordMembership("leave", "error")
			return nil, err
		}
	} else {
		if err := s.communityRepo.RemoveMember(ctx, community, userID); err != nil {
			recordMembership("leave", "error")
			return nil, err
		}
	}
	recordMembership("leave", "success")

	s.emitBestEffort(ctx, &models.Notification{
		UserID:        userID,
		Type:          models.NotificationTypeInfo,
		Title:         fmt.Sprintf("You left %s", community.Name),
		Message:       fmt.Sprintf("You are no longer a member of %s.", community.Name),
		CommunityID:   &community.ID,
		CommunityName: community.Name,
		CommunitySlug: community.Slug,
		MemberCount:   community.MemberCount,
	})
	if community.AdminUserID != userID {
		s.emitBestEffort(ctx, &models.Notification{
			UserID:        community.AdminUserID,
			Type:          models.NotificationTypeInfo,
			Title:         "Member left",
			Message:       fmt.Sprintf("%s left %s.", user.Username, community.Name),
			CommunityID:   &community.ID,
			CommunityName: community.Name,
			CommunitySlug: community.Slug,
			MemberCount:   community.MemberCount,
		})
	}

	return &MembershipResult{
		CommunityID:   community.ID,
		CommunitySlug: community.Slug,
		MemberCount:   community.MemberCount,
	}, nil
}

// AddMember is the administrative variant of Join: no invitation gate, no ban
// check override, and adding an existing member is a no-op so bulk edits stay
// idempotent.
func (s *MembershipService) AddMember(ctx context.Context, community *models.Community, userID uint, role models.MemberRole) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := s.communityRepo.EnsureMember(ctx, community, userID, role); err != nil {
		recordMembership("admin_add", "error")
		return err
	}
	recordMembership("admin_add", "success")
	return nil
}

// RemoveMember is the administrative variant of Leave: removing an absent
// member is a no-op and the sole-admin guard does not apply.
func (s *MembershipService) RemoveMember(ctx context.Context, community *models.Community, userID uint) error {
	if err := s.communityRepo.RemoveMember(ctx, community, userID); err != nil {
		recordMembership("admin_remove", "error")
		return err
	}
	recordMembership("admin_remove", "success")
	return nil
}

// RecountMembers refreshes the cached member count from the relation.
func (s *MembershipService) RecountMembers(ctx context.Context, community *models.Community) error {
	return s.communityRepo.RecountMembers(ctx, community)
}

// Invite issues a community invitation. The inviter must hold the admin or
// moderator role; the invitee must exist, must not already be a member, and
// must not already hold a pending invitation.
func (s *MembershipService) Invite(ctx context.Context, idOrSlug string, inviterID uint, inviteeEmail string) (*models.Notification, error) {
	community, err := s.ResolveCommunity(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	inviter, err := s.userRepo.GetByID(ctx, inviterID)
	if err != nil {
		return nil, err
	}

	inviterMember, err := s.communityRepo.GetMember(ctx, community.ID, inviterID)
	if err != nil {
		return nil, err
	}
	if inviterMember == nil ||
		(inviterMember.Role != models.MemberRoleAdmin && inviterMember.Role != models.MemberRoleModerator) {
		return nil, models.NewForbiddenError("Only community admins and moderators can send invitations")
	}

	invitee, err := s.userRepo.GetByEmail(ctx, inviteeEmail)
	if err != nil {
		return nil, err
	}
	if invitee == nil {
		return nil, models.NewNotFoundError("User", inviteeEmail)
	}

	inviteeMember, err := s.communityRepo.GetMember(ctx, community.ID, invitee.ID)
	if err != nil {
		return nil, err
	}
	if inviteeMember != nil {
		return nil, models.NewConflictError("User is already a member of this community")
	}

	existing, err := s.notificationRepo.PendingInvite(ctx, invitee.ID, community.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User has already been invited to this community")
	}

	invite := &models.Notification{
		UserID:        invitee.ID,
		Type:          models.NotificationTypeCommunityInvite,
		Title:         fmt.Sprintf("Invitation to %s", community.Name),
		Message:       fmt.Sprintf("%s invited you to join %s.", inviter.Username, community.Name),
		InviteStatus:  models.InviteStatusPending,
		CommunityID:   &community.ID,
		CommunityName: community.Name,
		CommunitySlug: community.Slug,
		InviterID:     &inviterID,
		InviterName:   inviter.Username,
		MemberCount:   community.MemberCount,
	}
	// Creating the invitation is the operation itself, not a side effect, so
	// a sink failure surfaces here.
	if err := s.sink.Emit(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

func (s *MembershipService) emitBestEffort(ctx context.Context, notification *models.Notification) {
	emitBestEffort(ctx, s.sink, notification)
}

// emitBestEffort swallows sink failures: a mutation already durable must
// never be reported as failed because a notification could not be stored or
// delivered.
func emitBestEffort(ctx context.Context, sink NotificationSink, notification *models.Notification) {
	if err := sink.Emit(ctx, notification); err != nil {
		middleware.NotificationEmitFailures.Inc()
		slog.WarnContext(ctx, "notification side effect failed",
			slog.Uint64("user_id", uint64(notification.UserID)),
			slog.String("type", string(notification.Type)),
			slog.String("error", err.Error()),
		)
	}
}

func recordMembership(operation, outcome string) {
	middleware.MembershipMutations.WithLabelValues(operation, outcome).Inc()
}
