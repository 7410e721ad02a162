package repository

import (
	"context"
	"errors"
	"time"

	"discussify/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for discussion posts. Posts
// are soft-deleted; the community's cached post count tracks non-deleted rows.
type PostRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	SoftDelete(ctx context.Context, id uint) error
	ListByCommunity(ctx context.Context, communityID uint, limit, offset int) ([]models.Post, error)
	CountActiveByCommunity(ctx context.Context, communityID uint) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	AddReport(ctx context.Context, id uint, report models.PostReport) error
	ClearReports(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return recountPostsTx(tx, post.CommunityID)
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SoftDelete marks the post deleted and refreshes the community post count
// in the same transaction.
func (r *postRepository) SoftDelete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return err
		}
		now := time.Now()
		if err := tx.Model(&models.Post{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"is_deleted": true, "deleted_at": now}).Error; err != nil {
			return err
		}
		return recountPostsTx(tx, post.CommunityID)
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) ListByCommunity(ctx context.Context, communityID uint, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Where("community_id = ? AND is_deleted = ?", communityID, false).
		Preload("Author").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) CountActiveByCommunity(ctx context.Context, communityID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("community_id = ? AND is_deleted = ?", communityID, false).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("is_deleted = ?", false).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) AddReport(ctx context.Context, id uint, report models.PostReport) error {
	post, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	post.Reports = append(post.Reports, report)
	return r.Update(ctx, post)
}

func (r *postRepository) ClearReports(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Update("reports", nil)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func recountPostsTx(tx *gorm.DB, communityID uint) error {
	var count int64
	if err := tx.Model(&models.Post{}).
		Where("community_id = ? AND is_deleted = ?", communityID, false).
		Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&models.Community{}).
		Where("id = ?", communityID).
		Update("post_count", count).Error
}
