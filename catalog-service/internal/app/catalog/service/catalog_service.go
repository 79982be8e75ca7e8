package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/repository"
	"marketplace/catalog-service/internal/app/catalog/search"
	"marketplace/catalog-service/internal/app/catalog/util"
	"marketplace/pkg/logger"

	"github.com/shopspring/decimal"
)

// numeric(10,2)
var maxPrice = decimal.New(1, 8)

// CatalogService обрабатывает бизнес-логику каталога товаров
// Координирует работу репозиториев, поискового движка, Redis кеша и Kafka producer
type CatalogService struct {
	categoryRepo  repository.CategoryRepository
	productRepo   repository.ProductRepository
	engine        SearchEngine
	redisCache    util.RedisCache
	kafkaProducer util.MessagePublisher
	cacheTTL      time.Duration
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	engine SearchEngine,
	redisCache util.RedisCache,
	kafkaProducer util.MessagePublisher,
	cacheTTL time.Duration,
) *CatalogService {
	return &CatalogService{
		categoryRepo:  categoryRepo,
		productRepo:   productRepo,
		engine:        engine,
		redisCache:    redisCache,
		kafkaProducer: kafkaProducer,
		cacheTTL:      cacheTTL,
	}
}

// === CATEGORIES ===

// CreateCategory создает категорию и инвалидирует кеш
// Родитель, если указан, должен быть активной категорией
func (s *CatalogService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error) {
	if req.ParentID != nil {
		if err := s.requireActiveParent(ctx, *req.ParentID); err != nil {
			return nil, err
		}
	}

	category := &entity.Category{
		Name:     req.Name,
		ParentID: req.ParentID,
		IsActive: true,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryAlreadyExists) {
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidateCategories(ctx)
	return category, nil
}

// GetCategory получает активную категорию по ID
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*entity.Category, error) {
	category, err := s.categoryRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// GetAllCategories получает активные категории с кешированием в Redis
func (s *CatalogService) GetAllCategories(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.redisCache.GetCategories(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read categories cache")
	}
	if err == nil && categories != nil {
		return categories, nil
	}

	categories, err = s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	if err := s.redisCache.SetCategories(ctx, categories, s.cacheTTL); err != nil {
		// Данные получены из БД, проблемы с кешем не критичны
		logger.Warn().Err(err).Msg("Failed to cache categories")
	}

	return categories, nil
}

// UpdateCategory обновляет имя и родителя категории и инвалидирует кеш
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, req *entity.UpdateCategoryRequest) (*entity.Category, error) {
	category, err := s.categoryRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, entity.NewValidationError("parent_id", "category cannot be its own parent")
		}
		if err := s.requireActiveParent(ctx, *req.ParentID); err != nil {
			return nil, err
		}
		if err := s.rejectParentCycle(ctx, id, *req.ParentID); err != nil {
			return nil, err
		}
	}

	category.Name = req.Name
	category.ParentID = req.ParentID

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		case errors.Is(err, repository.ErrCategoryAlreadyExists):
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidateCategories(ctx)
	return category, nil
}

// DeleteCategory мягко удаляет категорию и инвалидирует кеш
// Товары категории сразу пропадают из поиска
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categoryRepo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.invalidateCategories(ctx)
	return nil
}

func (s *CatalogService) requireActiveParent(ctx context.Context, parentID int64) error {
	if _, err := s.categoryRepo.GetActiveByID(ctx, parentID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrParentCategoryNotFound
		}
		return fmt.Errorf("failed to verify parent category: %w", err)
	}
	return nil
}

// rejectParentCycle поднимается от нового родителя к корню.
// Встретив id, отклоняет обновление: иначе получится цикл A->B->A.
// Предки проверяются в любом состоянии, неактивная категория тоже замыкает цикл.
func (s *CatalogService) rejectParentCycle(ctx context.Context, id, parentID int64) error {
	visited := map[int64]bool{}
	for current := parentID; ; {
		if current == id {
			return entity.NewValidationError("parent_id", "category cannot be a descendant of itself")
		}
		if visited[current] {
			// цикл выше по цепочке, id в нём не участвует
			return nil
		}
		visited[current] = true

		ancestor, err := s.categoryRepo.GetByID(ctx, current)
		if err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return nil
			}
			return fmt.Errorf("failed to walk category ancestors: %w", err)
		}
		if ancestor.ParentID == nil {
			return nil
		}
		current = *ancestor.ParentID
	}
}

func (s *CatalogService) invalidateCategories(ctx context.Context) {
	if err := s.redisCache.DeleteCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate categories cache")
	}
}

// === PRODUCTS ===

// CreateProduct создает товар продавца в активной категории
func (s *CatalogService) CreateProduct(ctx context.Context, sellerID int64, req *entity.CreateProductRequest) (*entity.Product, error) {
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	if err := s.requireActiveCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product := &entity.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		SellerID:    sellerID,
		IsActive:    true,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryInactive
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// GetProduct возвращает активный товар из активной категории
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	product, err := s.productRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if _, err := s.categoryRepo.GetActiveByID(ctx, product.CategoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to verify category: %w", err)
	}

	return product, nil
}

// SearchProducts - постраничный поиск с фильтрами и ранжированием
func (s *CatalogService) SearchProducts(ctx context.Context, f search.Filter) (*entity.ProductPage, error) {
	page, err := s.engine.Search(ctx, f)
	if err != nil {
		var verr *entity.ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return page, nil
}

// UpdateProduct обновляет товар владельца; rating не меняется.
// При смене цены отправляет PRODUCT_UPDATED.
func (s *CatalogService) UpdateProduct(ctx context.Context, sellerID, id int64, req *entity.UpdateProductRequest) (*entity.Product, error) {
	product, err := s.productRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product.SellerID != sellerID {
		return nil, ErrNotProductOwner
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	if err := s.requireActiveCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	oldPrice := product.Price

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.ImageURL = req.ImageURL
	product.Stock = req.Stock
	product.CategoryID = req.CategoryID

	if err := s.productRepo.Update(ctx, product); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, ErrProductNotFound
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrCategoryInactive
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if !product.Price.Equal(oldPrice) {
		event := entity.ProductEvent{
			EventType:  entity.EventProductUpdated,
			ProductID:  product.ID,
			Name:       product.Name,
			Price:      product.Price,
			CategoryID: product.CategoryID,
			Timestamp:  time.Now(),
		}
		if err := publishEvent(ctx, s.kafkaProducer, product.ID, event); err != nil {
			// Товар уже обновлен, проблемы с Kafka не критичны
			logger.Warn().Err(err).Int64("product_id", product.ID).Msg("Failed to publish product updated event")
		}
	}

	return product, nil
}

// DeleteProduct мягко удаляет товар владельца
func (s *CatalogService) DeleteProduct(ctx context.Context, sellerID, id int64) error {
	product, err := s.productRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to get product: %w", err)
	}

	if product.SellerID != sellerID {
		return ErrNotProductOwner
	}

	if err := s.productRepo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return nil
}

func (s *CatalogService) requireActiveCategory(ctx context.Context, categoryID int64) error {
	if _, err := s.categoryRepo.GetActiveByID(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrCategoryInactive
		}
		return fmt.Errorf("failed to verify category: %w", err)
	}
	return nil
}

// validatePrice: больше нуля, не более двух знаков после запятой
func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return entity.NewValidationError("price", "must be greater than 0")
	}
	if !price.Equal(price.Round(2)) {
		return entity.NewValidationError("price", "must have at most 2 decimal places")
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return entity.NewValidationError("price", "must be less than 100000000")
	}
	return nil
}
