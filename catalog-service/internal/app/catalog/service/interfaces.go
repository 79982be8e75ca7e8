package service

import (
	"context"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/search"

	"github.com/shopspring/decimal"
)

// SearchEngine - поиск товаров по фильтру, реализуется search.Engine
type SearchEngine interface {
	Search(ctx context.Context, f search.Filter) (*entity.ProductPage, error)
}

// RatingAggregator - пересчёт рейтинга одного товара, реализуется rating.Aggregator
type RatingAggregator interface {
	Recompute(ctx context.Context, productID int64) (decimal.Decimal, error)
}

type CatalogServiceInterface interface {
	CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error)
	GetCategory(ctx context.Context, id int64) (*entity.Category, error)
	GetAllCategories(ctx context.Context) ([]entity.Category, error)
	UpdateCategory(ctx context.Context, id int64, req *entity.UpdateCategoryRequest) (*entity.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, sellerID int64, req *entity.CreateProductRequest) (*entity.Product, error)
	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
	SearchProducts(ctx context.Context, f search.Filter) (*entity.ProductPage, error)
	UpdateProduct(ctx context.Context, sellerID, id int64, req *entity.UpdateProductRequest) (*entity.Product, error)
	DeleteProduct(ctx context.Context, sellerID, id int64) error
}

type ReviewServiceInterface interface {
	GetReviews(ctx context.Context) ([]entity.Review, error)
	GetProductReviews(ctx context.Context, productID int64) ([]entity.Review, error)
	CreateReview(ctx context.Context, userID int64, req *entity.CreateReviewRequest) (*entity.ReviewResponse, error)
	DeleteReview(ctx context.Context, reviewID int64) (*entity.RatingResponse, error)
}

type RatingServiceInterface interface {
	Recompute(ctx context.Context, productID int64) (decimal.Decimal, error)
	RecomputeOrMarkStale(ctx context.Context, productID int64) (decimal.Decimal, bool)
	ReconcileStale(ctx context.Context, batch int64) (int, error)
}
