package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/repository"
	"marketplace/catalog-service/internal/app/catalog/repository/mocks"
	"marketplace/catalog-service/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type reviewMocks struct {
	reviewRepo  *mocks.MockReviewRepository
	productRepo *mocks.MockProductRepository
	ratings     *mocks.MockRatingService
	publisher   *mocks.MockMessagePublisher
}

func setupReviewHandler() (*ReviewHandler, reviewMocks) {
	m := reviewMocks{
		reviewRepo:  new(mocks.MockReviewRepository),
		productRepo: new(mocks.MockProductRepository),
		ratings:     new(mocks.MockRatingService),
		publisher:   new(mocks.MockMessagePublisher),
	}
	m.publisher.On("PublishMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	reviewService := service.NewReviewService(m.reviewRepo, m.productRepo, m.ratings, m.publisher)
	return NewReviewHandler(reviewService), m
}

func TestReviewHandler_CreateReview_Success(t *testing.T) {
	// Arrange
	handler, m := setupReviewHandler()

	m.productRepo.On("GetActiveByID", mock.Anything, int64(3)).Return(newTestProduct(3, 2, 7), nil)
	m.reviewRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Review")).
		Run(func(args mock.Arguments) { args.Get(1).(*entity.Review).ID = 11 }).
		Return(nil)
	m.ratings.On("RecomputeOrMarkStale", mock.Anything, int64(3)).Return(decimal.RequireFromString("4.5"), false)

	c, w := newJSONContext(http.MethodPost, "/reviews", entity.CreateReviewRequest{ProductID: 3, Grade: 4}, nil)
	asUser(c, 5, RoleBuyer)

	// Act
	handler.CreateReview(c)

	// Assert
	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(11), response["id"])
	assert.Equal(t, float64(5), response["user_id"])
	assert.Equal(t, "4.5", response["rating"])
	assert.Equal(t, false, response["rating_stale"])
}

func TestReviewHandler_CreateReview_StaleRatingIsStillCreated(t *testing.T) {
	handler, m := setupReviewHandler()

	m.productRepo.On("GetActiveByID", mock.Anything, int64(3)).Return(newTestProduct(3, 2, 7), nil)
	m.reviewRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.ratings.On("RecomputeOrMarkStale", mock.Anything, int64(3)).Return(decimal.Zero, true)

	c, w := newJSONContext(http.MethodPost, "/reviews", entity.CreateReviewRequest{ProductID: 3, Grade: 4}, nil)
	asUser(c, 5, RoleBuyer)

	handler.CreateReview(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"rating_stale":true`)
}

func TestReviewHandler_CreateReview_InvalidGrade(t *testing.T) {
	handler, m := setupReviewHandler()

	c, w := newJSONContext(http.MethodPost, "/reviews", entity.CreateReviewRequest{ProductID: 3, Grade: 6}, nil)
	asUser(c, 5, RoleBuyer)

	handler.CreateReview(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "grade", decodeError(t, w).Field)
	m.reviewRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewHandler_CreateReview_UnknownProduct(t *testing.T) {
	handler, m := setupReviewHandler()

	m.productRepo.On("GetActiveByID", mock.Anything, int64(3)).Return(nil, repository.ErrProductNotFound)

	c, w := newJSONContext(http.MethodPost, "/reviews", entity.CreateReviewRequest{ProductID: 3, Grade: 4}, nil)
	asUser(c, 5, RoleBuyer)

	handler.CreateReview(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewHandler_DeleteReview(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, m := setupReviewHandler()

		m.reviewRepo.On("GetActiveByID", mock.Anything, int64(11)).
			Return(&entity.Review{ID: 11, ProductID: 3, Grade: 5, IsActive: true}, nil)
		m.reviewRepo.On("Deactivate", mock.Anything, int64(11)).Return(nil)
		m.ratings.On("RecomputeOrMarkStale", mock.Anything, int64(3)).Return(decimal.RequireFromString("4"), false)

		c, w := newJSONContext(http.MethodDelete, "/reviews/11", nil, gin.Params{{Key: "id", Value: "11"}})
		handler.DeleteReview(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"product_id":3`)
		m.reviewRepo.AssertExpectations(t)
	})

	t.Run("already deleted", func(t *testing.T) {
		handler, m := setupReviewHandler()

		m.reviewRepo.On("GetActiveByID", mock.Anything, int64(11)).Return(nil, repository.ErrReviewNotFound)

		c, w := newJSONContext(http.MethodDelete, "/reviews/11", nil, gin.Params{{Key: "id", Value: "11"}})
		handler.DeleteReview(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReviewHandler_GetProductReviews(t *testing.T) {
	handler, m := setupReviewHandler()

	m.productRepo.On("GetActiveByID", mock.Anything, int64(3)).Return(newTestProduct(3, 2, 7), nil)
	m.reviewRepo.On("ListActiveByProduct", mock.Anything, int64(3)).
		Return([]entity.Review{{ID: 1, ProductID: 3}, {ID: 2, ProductID: 3}}, nil)

	c, w := newJSONContext(http.MethodGet, "/products/3/reviews", nil, gin.Params{{Key: "id", Value: "3"}})

	handler.GetProductReviews(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response entity.ReviewListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Total)
}

func TestReviewHandler_GetReviews(t *testing.T) {
	handler, m := setupReviewHandler()

	m.reviewRepo.On("ListActive", mock.Anything).Return([]entity.Review{}, nil)

	c, w := newJSONContext(http.MethodGet, "/reviews", nil, nil)

	handler.GetReviews(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reviews":[],"total":0}`, w.Body.String())
}
