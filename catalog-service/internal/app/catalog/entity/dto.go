package entity

import "github.com/shopspring/decimal"

type CreateCategoryRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=55"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

type UpdateCategoryRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=55"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

// CreateProductRequest используется и для POST, и для PUT
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,min=3,max=110"`
	Description *string         `json:"description" validate:"omitempty,max=555"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,url,max=255"`
	Stock       int             `json:"stock" validate:"min=0"`
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
}

type UpdateProductRequest = CreateProductRequest

type CreateReviewRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Comment   *string `json:"comment" validate:"omitempty,max=555"`
	Grade     int     `json:"grade" validate:"required,min=1,max=5"`
}

// ReviewResponse - отзыв плюс актуальный рейтинг товара
// RatingStale=true означает, что пересчёт не удался и будет повторён позже
type ReviewResponse struct {
	Review
	Rating      decimal.Decimal `json:"rating"`
	RatingStale bool            `json:"rating_stale"`
}

// RatingResponse - рейтинг товара после пересчёта или удаления отзыва
type RatingResponse struct {
	ProductID   int64           `json:"product_id"`
	Rating      decimal.Decimal `json:"rating"`
	RatingStale bool            `json:"rating_stale,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type CategoryListResponse struct {
	Categories []Category `json:"categories"`
	Total      int        `json:"total"`
}

type ReviewListResponse struct {
	Reviews []Review `json:"reviews"`
	Total   int      `json:"total"`
}
