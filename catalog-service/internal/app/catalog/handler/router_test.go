package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/repository/mocks"
	"marketplace/catalog-service/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(userID int64, role string) JWTClaims {
	return JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

type testRouter struct {
	engine  *gin.Engine
	catalog catalogMocks
	ratings *mocks.MockRatingService
}

func setupTestRouter() testRouter {
	catalogHandler, cm := setupCatalogHandler()
	ratings := new(mocks.MockRatingService)

	reviewService := service.NewReviewService(
		new(mocks.MockReviewRepository), cm.productRepo, ratings, cm.publisher,
	)

	engine := SetupRoutes(Handlers{
		Catalog: catalogHandler,
		Reviews: NewReviewHandler(reviewService),
		Ratings: NewRatingHandler(ratings),
		Health:  NewHealthHandler(map[string]Pinger{"database": healthy()}),
	}, NewAuthMiddleware(testSecret))

	return testRouter{engine: engine, catalog: cm, ratings: ratings}
}

func (r testRouter) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.engine.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicReadsNeedNoToken(t *testing.T) {
	r := setupTestRouter()
	r.catalog.redisCache.On("GetCategories", mock.Anything).Return([]entity.Category{}, nil)

	w := r.do(http.MethodGet, "/categories", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_MutationsRequireToken(t *testing.T) {
	r := setupTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		header string
	}{
		{"no header", http.MethodPost, "/categories", ""},
		{"wrong scheme", http.MethodPost, "/products", "Basic abc"},
		{"garbage token", http.MethodPost, "/reviews", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_RejectsForeignSignatures(t *testing.T) {
	r := setupTestRouter()

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, "other-secret", validClaims(1, RoleAdmin))
		w := r.do(http.MethodDelete, "/categories/1", token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS512, testSecret, validClaims(1, RoleAdmin))
		w := r.do(http.MethodDelete, "/categories/1", token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims(1, RoleAdmin)
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		token := signToken(t, jwt.SigningMethodHS256, testSecret, claims)
		w := r.do(http.MethodDelete, "/categories/1", token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing role", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(1, ""))
		w := r.do(http.MethodDelete, "/categories/1", token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRouter_RoleChecks(t *testing.T) {
	r := setupTestRouter()

	buyer := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(5, RoleBuyer))
	seller := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(7, RoleSeller))

	assert.Equal(t, http.StatusForbidden, r.do(http.MethodPost, "/categories", buyer, `{"name":"Books"}`).Code)
	assert.Equal(t, http.StatusForbidden, r.do(http.MethodPost, "/products", buyer, `{}`).Code)
	assert.Equal(t, http.StatusForbidden, r.do(http.MethodPost, "/reviews", seller, `{}`).Code)
	assert.Equal(t, http.StatusForbidden, r.do(http.MethodDelete, "/reviews/1", seller, "").Code)
	assert.Equal(t, http.StatusForbidden, r.do(http.MethodPost, "/products/1/rating/recompute", seller, "").Code)
}

func TestRouter_SellerCreatesProductUnderOwnID(t *testing.T) {
	r := setupTestRouter()
	seller := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(7, RoleSeller))

	r.catalog.categoryRepo.On("GetActiveByID", mock.Anything, int64(2)).Return(newTestCategory(2), nil)
	r.catalog.productRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *entity.Product) bool {
		return p.SellerID == 7
	})).Return(nil)

	w := r.do(http.MethodPost, "/products", seller, `{"name":"Keyboard","price":"49.90","stock":2,"category_id":2}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	r.catalog.productRepo.AssertExpectations(t)
}

func TestRouter_AdminRecomputesRating(t *testing.T) {
	r := setupTestRouter()
	admin := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(1, RoleAdmin))

	r.ratings.On("Recompute", mock.Anything, int64(3)).Return(decimal.RequireFromString("3.7"), nil)

	w := r.do(http.MethodPost, "/products/3/rating/recompute", admin, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"product_id":3,"rating":"3.7"}`, w.Body.String())
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := setupTestRouter()

	assert.Equal(t, http.StatusOK, r.do(http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, r.do(http.MethodGet, "/health/liveness", "", "").Code)

	w := r.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
