package handler

import (
	"net/http"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	ratingService service.RatingServiceInterface
}

func NewRatingHandler(ratingService service.RatingServiceInterface) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// RecomputeRating обрабатывает POST /products/:id/rating/recompute.
// AggregationError отдаётся как 503, запрос можно повторить.
func (h *RatingHandler) RecomputeRating(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		respondBadRequest(c, "Invalid product ID")
		return
	}

	rating, err := h.ratingService.Recompute(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err, "Failed to recompute rating")
		return
	}

	c.JSON(http.StatusOK, entity.RatingResponse{
		ProductID: productID,
		Rating:    rating,
	})
}
