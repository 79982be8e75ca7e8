package util

import (
	"context"
	"time"

	"marketplace/catalog-service/internal/app/catalog/entity"
)

// RedisCache интерфейс для работы с Redis
// Кеш категорий и очередь товаров с устаревшим рейтингом
type RedisCache interface {
	SetCategories(ctx context.Context, categories []entity.Category, ttl time.Duration) error
	GetCategories(ctx context.Context) ([]entity.Category, error)
	DeleteCategories(ctx context.Context) error
	MarkRatingStale(ctx context.Context, productIDs ...int64) error
	PopStaleRatings(ctx context.Context, count int64) ([]int64, error)
	Close() error
}

// MessagePublisher интерфейс для отправки сообщений в очередь (Kafka)
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
