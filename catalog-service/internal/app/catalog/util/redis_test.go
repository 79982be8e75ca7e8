package util

import (
	"context"
	"testing"
	"time"

	"marketplace/catalog-service/internal/app/catalog/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RedisClientTestSuite тестовый suite для Redis клиента
type RedisClientTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *redis.Client
	cache     *RedisClient
}

func TestRedisClientSuite(t *testing.T) {
	suite.Run(t, new(RedisClientTestSuite))
}

func (s *RedisClientTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{
		Addr: s.miniRedis.Addr(),
	})

	s.cache = NewRedisClientFrom(s.client)
}

func (s *RedisClientTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *RedisClientTestSuite) TearDownSuite() {
	s.client.Close()
	s.miniRedis.Close()
}

// ===================== Categories Tests =====================

func (s *RedisClientTestSuite) TestCategories_RoundTripWithTTL() {
	ctx := context.Background()
	parentID := int64(1)
	categories := []entity.Category{
		{ID: 1, Name: "Electronics", IsActive: true},
		{ID: 2, Name: "Mice", ParentID: &parentID, IsActive: true},
	}

	// Act
	err := s.cache.SetCategories(ctx, categories, 10*time.Minute)
	s.NoError(err)
	result, err := s.cache.GetCategories(ctx)

	// Assert
	s.NoError(err)
	s.Len(result, 2)
	s.Equal("Mice", result[1].Name)
	s.Equal(parentID, *result[1].ParentID)
	s.Equal(10*time.Minute, s.miniRedis.TTL(categoriesCacheKey))
}

func (s *RedisClientTestSuite) TestGetCategories_Miss() {
	result, err := s.cache.GetCategories(context.Background())

	s.NoError(err)
	s.Nil(result)
}

func (s *RedisClientTestSuite) TestGetCategories_Expired() {
	ctx := context.Background()
	s.NoError(s.cache.SetCategories(ctx, []entity.Category{{ID: 1, Name: "Books"}}, time.Minute))

	s.miniRedis.FastForward(2 * time.Minute)

	result, err := s.cache.GetCategories(ctx)
	s.NoError(err)
	s.Nil(result)
}

func (s *RedisClientTestSuite) TestGetCategories_CorruptedPayload() {
	s.NoError(s.miniRedis.Set(categoriesCacheKey, "{not json"))

	result, err := s.cache.GetCategories(context.Background())

	s.Error(err)
	s.Nil(result)
}

func (s *RedisClientTestSuite) TestDeleteCategories() {
	ctx := context.Background()
	s.NoError(s.cache.SetCategories(ctx, []entity.Category{{ID: 1, Name: "Books"}}, time.Minute))

	s.NoError(s.cache.DeleteCategories(ctx))

	s.False(s.miniRedis.Exists(categoriesCacheKey))
}

// ===================== Stale ratings Tests =====================

func (s *RedisClientTestSuite) TestStaleRatings_MarkAndPop() {
	ctx := context.Background()

	s.NoError(s.cache.MarkRatingStale(ctx, 3, 5, 3))

	members, err := s.miniRedis.Members(staleRatingsKey)
	s.NoError(err)
	s.ElementsMatch([]string{"3", "5"}, members)

	ids, err := s.cache.PopStaleRatings(ctx, 10)
	s.NoError(err)
	s.ElementsMatch([]int64{3, 5}, ids)
	s.False(s.miniRedis.Exists(staleRatingsKey))
}

func (s *RedisClientTestSuite) TestStaleRatings_PopRespectsCount() {
	ctx := context.Background()
	s.NoError(s.cache.MarkRatingStale(ctx, 1, 2, 3, 4))

	ids, err := s.cache.PopStaleRatings(ctx, 3)

	s.NoError(err)
	s.Len(ids, 3)
	left, err := s.miniRedis.Members(staleRatingsKey)
	s.NoError(err)
	s.Len(left, 1)
}

func (s *RedisClientTestSuite) TestStaleRatings_PopEmpty() {
	ids, err := s.cache.PopStaleRatings(context.Background(), 5)

	s.NoError(err)
	s.Empty(ids)
}

func (s *RedisClientTestSuite) TestStaleRatings_SkipsGarbage() {
	ctx := context.Background()
	_, err := s.miniRedis.SAdd(staleRatingsKey, "abc", "7")
	s.NoError(err)

	ids, err := s.cache.PopStaleRatings(ctx, 5)

	s.NoError(err)
	s.Equal([]int64{7}, ids)
}

func (s *RedisClientTestSuite) TestMarkRatingStale_NoIDs() {
	s.NoError(s.cache.MarkRatingStale(context.Background()))
	s.False(s.miniRedis.Exists(staleRatingsKey))
}
