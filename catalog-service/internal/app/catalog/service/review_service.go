package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/repository"
	"marketplace/catalog-service/internal/app/catalog/util"
	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
)

// ReviewService - отзывы покупателей.
// Каждое создание и удаление отзыва завершается пересчётом рейтинга товара.
type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	ratings     RatingServiceInterface
	publisher   util.MessagePublisher
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	ratings RatingServiceInterface,
	publisher util.MessagePublisher,
) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		ratings:     ratings,
		publisher:   publisher,
	}
}

func (s *ReviewService) GetReviews(ctx context.Context) ([]entity.Review, error) {
	reviews, err := s.reviewRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	return reviews, nil
}

// GetProductReviews возвращает активные отзывы активного товара
func (s *ReviewService) GetProductReviews(ctx context.Context, productID int64) ([]entity.Review, error) {
	if _, err := s.productRepo.GetActiveByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	reviews, err := s.reviewRepo.ListActiveByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product reviews: %w", err)
	}
	return reviews, nil
}

// CreateReview сохраняет отзыв, пересчитывает рейтинг и публикует REVIEW_CREATED.
// Неудачный пересчёт не отменяет отзыв: в ответе RatingStale=true.
func (s *ReviewService) CreateReview(ctx context.Context, userID int64, req *entity.CreateReviewRequest) (*entity.ReviewResponse, error) {
	if req.Grade < 1 || req.Grade > 5 {
		return nil, entity.NewValidationError("grade", "must be between 1 and 5")
	}

	if _, err := s.productRepo.GetActiveByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	review := &entity.Review{
		UserID:    userID,
		ProductID: req.ProductID,
		Comment:   req.Comment,
		Grade:     req.Grade,
		IsActive:  true,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	metrics.ReviewsCreated.Inc()
	metrics.ReviewsGrade.Observe(float64(review.Grade))

	// событие уходит после пересчёта, потребители видят новый рейтинг
	rating, stale := s.ratings.RecomputeOrMarkStale(ctx, review.ProductID)
	s.publishReviewEvent(ctx, entity.EventReviewCreated, review)

	return &entity.ReviewResponse{
		Review:      *review,
		Rating:      rating,
		RatingStale: stale,
	}, nil
}

// DeleteReview мягко удаляет отзыв и пересчитывает рейтинг товара
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID int64) (*entity.RatingResponse, error) {
	review, err := s.reviewRepo.GetActiveByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	if err := s.reviewRepo.Deactivate(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to delete review: %w", err)
	}
	review.IsActive = false

	rating, stale := s.ratings.RecomputeOrMarkStale(ctx, review.ProductID)
	s.publishReviewEvent(ctx, entity.EventReviewDeleted, review)

	return &entity.RatingResponse{
		ProductID:   review.ProductID,
		Rating:      rating,
		RatingStale: stale,
	}, nil
}

func (s *ReviewService) publishReviewEvent(ctx context.Context, eventType string, review *entity.Review) {
	event := entity.ReviewEvent{
		EventType: eventType,
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Grade:     review.Grade,
		Timestamp: time.Now(),
	}
	if err := publishEvent(ctx, s.publisher, review.ProductID, event); err != nil {
		logger.Warn().
			Err(err).
			Str("event_type", eventType).
			Int64("review_id", review.ID).
			Msg("Failed to publish review event")
	}
}
