package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace/catalog-service/internal/app/catalog/entity"

	"gorm.io/gorm"
)

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create фиксирует отзыв сразу, до пересчёта рейтинга
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *reviewRepository) GetActiveByID(ctx context.Context, id int64) (*entity.Review, error) {
	var review entity.Review
	result := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&review)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", result.Error)
	}

	return &review, nil
}

func (r *reviewRepository) ListActive(ctx context.Context) ([]entity.Review, error) {
	reviews := []entity.Review{}
	result := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("comment_date DESC, id DESC").
		Find(&reviews)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", result.Error)
	}

	return reviews, nil
}

func (r *reviewRepository) ListActiveByProduct(ctx context.Context, productID int64) ([]entity.Review, error) {
	reviews := []entity.Review{}
	result := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("comment_date DESC, id DESC").
		Find(&reviews)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list product reviews: %w", result.Error)
	}

	return reviews, nil
}

// Deactivate мягко удаляет отзыв; повторное удаление даёт ErrReviewNotFound
func (r *reviewRepository) Deactivate(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Review{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)

	if result.Error != nil {
		return fmt.Errorf("failed to deactivate review: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}
