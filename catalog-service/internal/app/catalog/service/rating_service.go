package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/util"
	"marketplace/pkg/logger"

	"github.com/shopspring/decimal"
)

// RatingService оборачивает агрегатор: публикует RATING_RECOMPUTED
// и ведёт очередь товаров с устаревшим рейтингом в Redis
type RatingService struct {
	aggregator RatingAggregator
	cache      util.RedisCache
	publisher  util.MessagePublisher
}

func NewRatingService(
	aggregator RatingAggregator,
	cache util.RedisCache,
	publisher util.MessagePublisher,
) *RatingService {
	return &RatingService{
		aggregator: aggregator,
		cache:      cache,
		publisher:  publisher,
	}
}

// Recompute пересчитывает рейтинг.
// Неизвестный товар даёт ErrProductNotFound, неудача после повтора - *entity.AggregationError.
func (s *RatingService) Recompute(ctx context.Context, productID int64) (decimal.Decimal, error) {
	value, err := s.aggregator.Recompute(ctx, productID)
	if err != nil {
		var notFound *entity.NotFoundError
		if errors.As(err, &notFound) {
			return decimal.Zero, ErrProductNotFound
		}
		return decimal.Zero, err
	}

	s.publishRatingEvent(ctx, productID, value)
	return value, nil
}

// RecomputeOrMarkStale вызывается после изменения отзывов.
// Ошибка пересчёта не отменяет уже зафиксированный отзыв: товар
// попадает в очередь ratings:stale, второй результат равен true.
func (s *RatingService) RecomputeOrMarkStale(ctx context.Context, productID int64) (decimal.Decimal, bool) {
	value, err := s.Recompute(ctx, productID)
	if err == nil {
		return value, false
	}

	if errors.Is(err, ErrProductNotFound) {
		logger.Warn().
			Int64("product_id", productID).
			Msg("Product disappeared before rating recompute")
		return decimal.Zero, false
	}

	logger.Warn().
		Err(err).
		Int64("product_id", productID).
		Msg("Rating is stale, scheduled for reconciliation")

	// отметка должна пережить отмену запроса
	if markErr := s.cache.MarkRatingStale(context.WithoutCancel(ctx), productID); markErr != nil {
		logger.Error().
			Err(markErr).
			Int64("product_id", productID).
			Msg("Failed to mark rating stale")
	}

	return decimal.Zero, true
}

// ReconcileStale забирает до batch товаров из очереди и пересчитывает их.
// Неудачные возвращаются в очередь. Возвращает число успешных пересчётов.
func (s *RatingService) ReconcileStale(ctx context.Context, batch int64) (int, error) {
	ids, err := s.cache.PopStaleRatings(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to pop stale ratings: %w", err)
	}

	recomputed := 0
	var failed []int64
	for i, id := range ids {
		if ctx.Err() != nil {
			failed = append(failed, ids[i:]...)
			break
		}

		_, err := s.Recompute(ctx, id)
		switch {
		case err == nil:
			recomputed++
		case errors.Is(err, ErrProductNotFound):
			logger.Warn().Int64("product_id", id).Msg("Dropping stale rating of unknown product")
		default:
			failed = append(failed, id)
		}
	}

	if len(failed) > 0 {
		if err := s.cache.MarkRatingStale(context.WithoutCancel(ctx), failed...); err != nil {
			return recomputed, fmt.Errorf("failed to re-mark stale ratings: %w", err)
		}
	}

	return recomputed, nil
}

func (s *RatingService) publishRatingEvent(ctx context.Context, productID int64, value decimal.Decimal) {
	event := entity.RatingEvent{
		EventType: entity.EventRatingRecomputed,
		ProductID: productID,
		Rating:    value,
		Timestamp: time.Now(),
	}
	if err := publishEvent(ctx, s.publisher, productID, event); err != nil {
		logger.Warn().Err(err).Int64("product_id", productID).Msg("Failed to publish rating event")
	}
}

// publishEvent сериализует событие в JSON и отправляет с ключом = id товара
func publishEvent(ctx context.Context, publisher util.MessagePublisher, productID int64, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := publisher.PublishMessage(ctx, strconv.FormatInt(productID, 10), data); err != nil {
		return fmt.Errorf("failed to publish to kafka: %w", err)
	}

	return nil
}
