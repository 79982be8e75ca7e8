package service

import "errors"

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrCategoryNotFound       = errors.New("category not found")
	ErrCategoryAlreadyExists  = errors.New("category with this name already exists")
	ErrParentCategoryNotFound = errors.New("parent category not found or inactive")
	ErrCategoryInactive       = errors.New("category not found or inactive")
	ErrProductNotFound        = errors.New("product not found or inactive")
	ErrReviewNotFound         = errors.New("review not found or already inactive")
	ErrNotProductOwner        = errors.New("you can only modify your own products")
)
