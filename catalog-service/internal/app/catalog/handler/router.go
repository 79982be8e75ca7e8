package handler

import (
	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers - все обработчики сервиса для SetupRoutes
type Handlers struct {
	Catalog *CatalogHandler
	Reviews *ReviewHandler
	Ratings *RatingHandler
	Health  *HealthHandler
}

// SetupRoutes настраивает маршруты Catalog Service.
// Чтение каталога публичное, изменения требуют JWT и роли.
func SetupRoutes(h Handlers, authMiddleware *AuthMiddleware) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware(entity.ServiceName))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		AllowWildcard:    true,
		MaxAge:           300,
	}))

	router.GET("/health", h.Health.Health)
	router.GET("/health/readiness", h.Health.Readiness)
	router.GET("/health/liveness", h.Health.Liveness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := authMiddleware.Authenticate()

	categories := router.Group("/categories")
	{
		categories.GET("", h.Catalog.GetAllCategories)
		categories.GET("/:id", h.Catalog.GetCategory)

		categories.POST("", auth, authMiddleware.RequireRole(RoleAdmin), h.Catalog.CreateCategory)
		categories.PUT("/:id", auth, authMiddleware.RequireRole(RoleAdmin), h.Catalog.UpdateCategory)
		categories.DELETE("/:id", auth, authMiddleware.RequireRole(RoleAdmin), h.Catalog.DeleteCategory)
	}

	products := router.Group("/products")
	{
		products.GET("", h.Catalog.SearchProducts)
		products.GET("/:id", h.Catalog.GetProduct)
		products.GET("/:id/reviews", h.Reviews.GetProductReviews)

		// владелец проверяется в сервисе
		products.POST("", auth, authMiddleware.RequireRole(RoleSeller), h.Catalog.CreateProduct)
		products.PUT("/:id", auth, authMiddleware.RequireRole(RoleSeller), h.Catalog.UpdateProduct)
		products.DELETE("/:id", auth, authMiddleware.RequireRole(RoleSeller), h.Catalog.DeleteProduct)

		products.POST("/:id/rating/recompute", auth, authMiddleware.RequireRole(RoleAdmin), h.Ratings.RecomputeRating)
	}

	reviews := router.Group("/reviews")
	{
		reviews.GET("", h.Reviews.GetReviews)
		reviews.POST("", auth, authMiddleware.RequireRole(RoleBuyer), h.Reviews.CreateReview)
		reviews.DELETE("/:id", auth, authMiddleware.RequireRole(RoleAdmin), h.Reviews.DeleteReview)
	}

	return router
}
