package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	categoriesCacheKey = "categories:all"
	// staleRatingsKey - множество id товаров, чей рейтинг не удалось пересчитать
	staleRatingsKey = "ratings:stale"
)

type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// NewRedisClientFrom оборачивает уже созданный клиент
func NewRedisClientFrom(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Client отдаёт исходный клиент для health check
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func (r *RedisClient) SetCategories(ctx context.Context, categories []entity.Category, ttl time.Duration) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	timer := metrics.NewRedisTimer(entity.ServiceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	if err := r.client.Set(ctx, categoriesCacheKey, data, ttl).Err(); err != nil {
		metrics.RecordRedisError(entity.ServiceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to set categories in cache: %w", err)
	}

	return nil
}

// GetCategories возвращает nil, nil при промахе кеша
func (r *RedisClient) GetCategories(ctx context.Context) ([]entity.Category, error) {
	timer := metrics.NewRedisTimer(entity.ServiceName, metrics.RedisOpGet)
	data, err := r.client.Get(ctx, categoriesCacheKey).Bytes()
	timer.ObserveDuration()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(entity.ServiceName, "categories")
			return nil, nil
		}
		metrics.RecordRedisError(entity.ServiceName, metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get categories from cache: %w", err)
	}

	var categories []entity.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}

	metrics.RecordCacheHit(entity.ServiceName, "categories")
	return categories, nil
}

func (r *RedisClient) DeleteCategories(ctx context.Context) error {
	timer := metrics.NewRedisTimer(entity.ServiceName, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	if err := r.client.Del(ctx, categoriesCacheKey).Err(); err != nil {
		metrics.RecordRedisError(entity.ServiceName, metrics.RedisOpDel)
		return fmt.Errorf("failed to delete categories from cache: %w", err)
	}
	return nil
}

// MarkRatingStale добавляет товары в очередь на повторный пересчёт
func (r *RedisClient) MarkRatingStale(ctx context.Context, productIDs ...int64) error {
	if len(productIDs) == 0 {
		return nil
	}

	members := make([]interface{}, 0, len(productIDs))
	for _, id := range productIDs {
		members = append(members, strconv.FormatInt(id, 10))
	}

	timer := metrics.NewRedisTimer(entity.ServiceName, metrics.RedisOpSAdd)
	defer timer.ObserveDuration()

	added, err := r.client.SAdd(ctx, staleRatingsKey, members...).Result()
	if err != nil {
		metrics.RecordRedisError(entity.ServiceName, metrics.RedisOpSAdd)
		return fmt.Errorf("failed to mark ratings stale: %w", err)
	}

	metrics.RatingStale.Add(float64(added))
	return nil
}

// PopStaleRatings забирает до count id из очереди пересчёта
func (r *RedisClient) PopStaleRatings(ctx context.Context, count int64) ([]int64, error) {
	timer := metrics.NewRedisTimer(entity.ServiceName, metrics.RedisOpSPop)
	members, err := r.client.SPopN(ctx, staleRatingsKey, count).Result()
	timer.ObserveDuration()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []int64{}, nil
		}
		metrics.RecordRedisError(entity.ServiceName, metrics.RedisOpSPop)
		return nil, fmt.Errorf("failed to pop stale ratings: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			// мусор в множестве просто отбрасываем
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
