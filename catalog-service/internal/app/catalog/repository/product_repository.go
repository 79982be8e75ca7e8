package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace/catalog-service/internal/app/catalog/entity"

	"gorm.io/gorm"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает новый репозиторий товаров
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create создает новый товар; rating получает значение по умолчанию из БД
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) GetActiveByID(ctx context.Context, id int64) (*entity.Product, error) {
	var product entity.Product
	result := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&product)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", result.Error)
	}

	return &product, nil
}

// Update обновляет редактируемые поля активного товара
func (r *productRepository) Update(ctx context.Context, product *entity.Product) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Where("id = ? AND is_active = ?", product.ID, true).
		Updates(map[string]interface{}{
			"name":        product.Name,
			"description": product.Description,
			"price":       product.Price,
			"image_url":   product.ImageURL,
			"stock":       product.Stock,
			"category_id": product.CategoryID,
		})

	if result.Error != nil {
		if isForeignKeyViolation(result.Error) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Deactivate мягко удаляет товар
func (r *productRepository) Deactivate(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)

	if result.Error != nil {
		return fmt.Errorf("failed to deactivate product: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
