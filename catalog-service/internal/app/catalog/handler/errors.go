package handler

import (
	"errors"
	"net/http"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/service"
	"marketplace/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError переводит ошибку сервиса в HTTP статус.
// Неизвестные ошибки логируются и отдаются как 500 с текстом fallback.
func respondError(c *gin.Context, err error, fallback string) {
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Error:   "Validation failed",
			Field:   verr.Field,
			Message: verr.Message,
		})
		return
	}

	var aggErr *entity.AggregationError
	if errors.As(err, &aggErr) {
		logger.Warn().Err(err).Int64("product_id", aggErr.ProductID).Msg("Rating recompute unavailable")
		c.JSON(http.StatusServiceUnavailable, entity.ErrorResponse{Error: "Rating recompute failed, try again later"})
		return
	}

	switch {
	case errors.Is(err, service.ErrCategoryInactive):
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Category not found or inactive"})
	case errors.Is(err, service.ErrParentCategoryNotFound):
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Parent category not found or inactive"})
	case errors.Is(err, service.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Category not found"})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
	case errors.Is(err, service.ErrReviewNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Review not found"})
	case errors.Is(err, service.ErrNotProductOwner):
		c.JSON(http.StatusForbidden, entity.ErrorResponse{Error: "You can only update/delete your own products"})
	case errors.Is(err, service.ErrCategoryAlreadyExists):
		c.JSON(http.StatusConflict, entity.ErrorResponse{Error: "Category with this name already exists"})
	default:
		logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg(fallback)
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: fallback})
	}
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: message})
}

func formatValidationError(err error) entity.ErrorResponse {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return entity.ErrorResponse{
			Error:   "Validation failed",
			Field:   fe.Field(),
			Message: "failed on " + fe.Tag(),
		}
	}
	return entity.ErrorResponse{Error: "Validation failed"}
}
