package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"discussify/internal/cache"
	"discussify/internal/models"

	"gorm.io/gorm"
)

// CommunityRepository defines persistence operations for communities and
// their membership relation. Multi-row mutations run inside a single
// transaction so the member list, the cached count, and dependent rows can
// never diverge.
type CommunityRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Community, error)
	GetBySlug(ctx context.Context, slug string) (*models.Community, error)
	Resolve(ctx context.Context, idOrSlug string) (*models.Community, error)
	Create(ctx context.Context, community *models.Community) error
	Update(ctx context.Context, community *models.Community) error
	SoftDelete(ctx context.Context, community *models.Community) error

	Popular(ctx context.Context, limit, offset int) ([]models.Community, error)
	Recommended(ctx context.Context, userID uint, interests []string, limit int) ([]models.Community, error)
	Discover(ctx context.Context, userID uint, limit, offset int) ([]models.Community, error)
	ForUser(ctx context.Context, userID uint) ([]models.Community, error)
	ListActive(ctx context.Context, limit, offset int) ([]models.Community, int64, error)
	CountActive(ctx context.Context) (int64, error)

	GetMember(ctx context.Context, communityID, userID uint) (*models.CommunityMember, error)
	ListMembers(ctx context.Context, communityID uint) ([]models.CommunityMember, error)
	IsBanned(ctx context.Context, communityID, userID uint) (bool, error)
	AddMember(ctx context.Context, community *models.Community, userID uint, role models.MemberRole, consumeInviteID *uint) error
	EnsureMember(ctx context.Context, community *models.Community, userID uint, role models.MemberRole) error
	RemoveMember(ctx context.Context, community *models.Community, userID uint) error
	ReplaceAdmin(ctx context.Context, community *models.Community, leavingAdminID, successorID uint) error
	EarliestOtherAdmin(ctx context.Context, communityID, excludeUserID uint) (*models.CommunityMember, error)
	RecountMembers(ctx context.Context, community *models.Community) error
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository returns a new CommunityRepository implementation.
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) GetByID(ctx context.Context, id uint) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Preload("AdminUser").First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &community, nil
}

func (r *communityRepository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	key := cache.CommunityKey(slug)

	err := cache.Aside(ctx, key, &community, cache.CommunityTTL, func() error {
		if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&community).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Community", slug)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &community, nil
}

// Resolve looks a community up by numeric ID first, falling back to slug.
// The same path parameter carries either form.
func (r *communityRepository) Resolve(ctx context.Context, idOrSlug string) (*models.Community, error) {
	if id, err := strconv.ParseUint(idOrSlug, 10, 32); err == nil {
		community, err := r.GetByID(ctx, uint(id))
		if err == nil {
			return community, nil
		}
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code != models.CodeNotFound {
			return nil, err
		}
	}
	return r.GetBySlug(ctx, idOrSlug)
}

// Create inserts the community together with its initial admin membership.
func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		member := models.CommunityMember{
			CommunityID: community.ID,
			UserID:      community.AdminUserID,
			Role:        models.MemberRoleAdmin,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return recountMembersTx(tx, community.ID)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A community with this name already exists")
		}
		return models.NewInternalError(err)
	}
	community.MemberCount = 1
	return nil
}

// Update persists edits. A rename moves the record to a new slug, so the
// cache entry under the stored slug is dropped as well as the current one;
// otherwise the old slug would keep serving the stale document until its TTL
// expired.
func (r *communityRepository) Update(ctx context.Context, community *models.Community) error {
	var previous models.Community
	if err := r.db.WithContext(ctx).Select("slug").First(&previous, community.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Community", community.ID)
		}
		return models.NewInternalError(err)
	}

	if err := r.db.WithContext(ctx).Save(community).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A community with this name already exists")
		}
		return models.NewInternalError(err)
	}

	cache.InvalidateCommunity(ctx, community.Slug)
	if previous.Slug != community.Slug {
		cache.InvalidateCommunity(ctx, previous.Slug)
	}
	return nil
}

// SoftDelete deactivates the community and clears its membership rows so
// joined-community projections stop including it.
func (r *communityRepository) SoftDelete(ctx context.Context, community *models.Community) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Community{}).
			Where("id = ?", community.ID).
			Updates(map[string]interface{}{"is_active": false, "member_count": 0}).Error; err != nil {
			return err
		}
		return tx.Where("community_id = ?", community.ID).
			Delete(&models.CommunityMember{}).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	community.IsActive = false
	community.MemberCount = 0
	cache.InvalidateCommunity(ctx, community.Slug)
	return nil
}

func (r *communityRepository) Popular(ctx context.Context, limit, offset int) ([]models.Community, error) {
	var communities []models.Community
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND visibility = ?", true, models.VisibilityPublic).
		Order("member_count DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

// Recommended returns public communities whose categories overlap the user's
// interests, excluding ones already joined. Categories are stored as a JSON
// array, so overlap is matched per interest against the serialized column.
func (r *communityRepository) Recommended(ctx context.Context, userID uint, interests []string, limit int) ([]models.Community, error) {
	if len(interests) == 0 {
		return []models.Community{}, nil
	}

	query := r.db.WithContext(ctx).
		Where("is_active = ? AND visibility = ?", true, models.VisibilityPublic).
		Where("id NOT IN (?)", r.db.Model(&models.CommunityMember{}).
			Select("community_id").Where("user_id = ?", userID))

	match := r.db.Where("categories LIKE ?", `%"`+interests[0]+`"%`)
	for _, interest := range interests[1:] {
		match = match.Or("categories LIKE ?", `%"`+interest+`"%`)
	}
	query = query.Where(match)

	var communities []models.Community
	if err := query.
		Order("member_count DESC").
		Limit(limit).
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

// Discover returns public communities the given user neither joined nor
// administers. Administered communities are covered by the membership
// exclusion since the admin always holds a member row.
func (r *communityRepository) Discover(ctx context.Context, userID uint, limit, offset int) ([]models.Community, error) {
	var communities []models.Community
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND visibility = ?", true, models.VisibilityPublic).
		Where("id NOT IN (?)", r.db.Model(&models.CommunityMember{}).
			Select("community_id").Where("user_id = ?", userID)).
		Order("member_count DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) ForUser(ctx context.Context, userID uint) ([]models.Community, error) {
	var communities []models.Community
	if err := r.db.WithContext(ctx).
		Joins("JOIN community_members cm ON cm.community_id = communities.id").
		Where("cm.user_id = ? AND communities.is_active = ?", userID, true).
		Order("cm.created_at ASC").
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) ListActive(ctx context.Context, limit, offset int) ([]models.Community, int64, error) {
	var communities []models.Community
	var total int64
	base := r.db.WithContext(ctx).Model(&models.Community{}).Where("is_active = ?", true)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := base.
		Preload("AdminUser").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&communities).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return communities, total, nil
}

func (r *communityRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Community{}).
		Where("is_active = ?", true).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *communityRepository) GetMember(ctx context.Context, communityID, userID uint) (*models.CommunityMember, error) {
	var member models.CommunityMember
	if err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &member, nil
}

func (r *communityRepository) ListMembers(ctx context.Context, communityID uint) ([]models.CommunityMember, error) {
	var members []models.CommunityMember
	if err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Preload("User").
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return members, nil
}

func (r *communityRepository) IsBanned(ctx context.Context, communityID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CommunityBan{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// AddMember inserts a membership row and recounts. A duplicate insert, which
// is how a join race surfaces under the composite primary key, is reported
// as Conflict. When consumeInviteID is set the matching invitation is marked
// accepted in the same transaction.
func (r *communityRepository) AddMember(ctx context.Context, community *models.Community, userID uint, role models.MemberRole, consumeInviteID *uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member := models.CommunityMember{
			CommunityID: community.ID,
			UserID:      userID,
			Role:        role,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		if consumeInviteID != nil {
			if err := tx.Model(&models.Notification{}).
				Where("id = ?", *consumeInviteID).
				Updates(map[string]interface{}{
					"read":          true,
					"invite_status": models.InviteStatusAccepted,
				}).Error; err != nil {
				return err
			}
		}
		return recountMembersTx(tx, community.ID)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User is already a member of this community")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCommunity(ctx, community.Slug)
	return r.refreshCount(ctx, community)
}

// EnsureMember is the idempotent administrative variant of AddMember: adding
// an existing member is a no-op, not an error.
func (r *communityRepository) EnsureMember(ctx context.Context, community *models.Community, userID uint, role models.MemberRole) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CommunityMember
		err := tx.Where("community_id = ? AND user_id = ?", community.ID, userID).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		member := models.CommunityMember{
			CommunityID: community.ID,
			UserID:      userID,
			Role:        role,
		}
		if err := tx.Create(&member).Error; err != nil {
			// Lost the race to a concurrent insert; the member exists, which
			// is the state we wanted.
			if isUniqueConstraintError(err) {
				return nil
			}
			return err
		}
		return recountMembersTx(tx, community.ID)
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateCommunity(ctx, community.Slug)
	return r.refreshCount(ctx, community)
}

// RemoveMember deletes a membership row and recounts. Removing an absent
// member is a no-op.
func (r *communityRepository) RemoveMember(ctx context.Context, community *models.Community, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("community_id = ? AND user_id = ?", community.ID, userID).
			Delete(&models.CommunityMember{}).Error; err != nil {
			return err
		}
		return recountMembersTx(tx, community.ID)
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateCommunity(ctx, community.Slug)
	return r.refreshCount(ctx, community)
}

// ReplaceAdmin removes the leaving admin's membership and promotes the
// successor to community owner in a single transaction, so the community is
// never left admin-less.
func (r *communityRepository) ReplaceAdmin(ctx context.Context, community *models.Community, leavingAdminID, successorID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("community_id = ? AND user_id = ?", community.ID, leavingAdminID).
			Delete(&models.CommunityMember{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.CommunityMember{}).
			Where("community_id = ? AND user_id = ?", community.ID, successorID).
			Update("role", models.MemberRoleAdmin).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Community{}).
			Where("id = ?", community.ID).
			Update("admin_user_id", successorID).Error; err != nil {
			return err
		}
		return recountMembersTx(tx, community.ID)
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	community.AdminUserID = successorID
	cache.InvalidateCommunity(ctx, community.Slug)
	return r.refreshCount(ctx, community)
}

// refreshCount re-reads the persisted member count into the struct after a
// transactional mutation already recounted it.
func (r *communityRepository) refreshCount(ctx context.Context, community *models.Community) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ?", community.ID).
		Count(&count).Error; err != nil {
		return models.NewInternalError(err)
	}
	community.MemberCount = count
	return nil
}

// EarliestOtherAdmin returns the longest-standing member holding the admin
// role besides the given user, or nil when none exists.
func (r *communityRepository) EarliestOtherAdmin(ctx context.Context, communityID, excludeUserID uint) (*models.CommunityMember, error) {
	var member models.CommunityMember
	if err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id != ? AND role = ?", communityID, excludeUserID, models.MemberRoleAdmin).
		Order("created_at ASC").
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &member, nil
}

// RecountMembers refreshes the cached member count from COUNT(*) and updates
// the in-memory struct. Counting beats incremental arithmetic because drift
// cannot accumulate.
func (r *communityRepository) RecountMembers(ctx context.Context, community *models.Community) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ?", community.ID).
		Count(&count).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Community{}).
		Where("id = ?", community.ID).
		Updates(map[string]interface{}{"member_count": count, "updated_at": time.Now()}).Error; err != nil {
		return models.NewInternalError(err)
	}
	community.MemberCount = count
	return nil
}

func recountMembersTx(tx *gorm.DB, communityID uint) error {
	var count int64
	if err := tx.Model(&models.CommunityMember{}).
		Where("community_id = ?", communityID).
		Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&models.Community{}).
		Where("id = ?", communityID).
		Update("member_count", count).Error
}
