package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL 상수 정의
const (
	TTLReviewStatus = 30 * time.Second // 리뷰 상태 (등록 패스마다 바뀔 수 있음)
	TTLPendingCount = 1 * time.Minute  // 매장별 대기 건수
	TTLDefault      = 5 * time.Minute  // 기본값
)

// 캐시 키 접두사
const (
	PrefixReviewStatus = "review:status:"
	PrefixPendingCount = "store:pending:"
)

// Service Redis 캐시 서비스 인터페이스
type Service interface {
	// 기본 캐시 연산
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// 리뷰 상태 캐시
	GetReviewStatus(ctx context.Context, reviewID string, dest interface{}) error
	SetReviewStatus(ctx context.Context, reviewID string, data interface{}) error
	InvalidateReviewStatus(ctx context.Context, reviewID string) error

	// 매장별 대기 건수 캐시
	GetPendingCount(ctx context.Context, storeCode string) (int64, error)
	SetPendingCount(ctx context.Context, storeCode string, count int64) error
	InvalidatePendingCount(ctx context.Context, storeCode string) error

	// 유틸리티
	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache Redis 기반 캐시 구현
type redisCache struct {
	client *redis.Client
}

// NewService 새로운 캐시 서비스 생성
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable Redis 연결 가능 여부
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Ping Redis 연결 테스트
func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

// Get 캐시에서 값 조회
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return fmt.Errorf("redis not available")
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set 캐시에 값 저장
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Redis 없으면 무시
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete 캐시 삭제
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// ========================================
// 리뷰 상태 캐시
// ========================================

func (c *redisCache) reviewStatusKey(reviewID string) string {
	return PrefixReviewStatus + reviewID
}

func (c *redisCache) GetReviewStatus(ctx context.Context, reviewID string, dest interface{}) error {
	return c.Get(ctx, c.reviewStatusKey(reviewID), dest)
}

func (c *redisCache) SetReviewStatus(ctx context.Context, reviewID string, data interface{}) error {
	return c.Set(ctx, c.reviewStatusKey(reviewID), data, TTLReviewStatus)
}

func (c *redisCache) InvalidateReviewStatus(ctx context.Context, reviewID string) error {
	return c.Delete(ctx, c.reviewStatusKey(reviewID))
}

// ========================================
// 매장별 대기 건수 캐시
// ========================================

func (c *redisCache) pendingCountKey(storeCode string) string {
	return PrefixPendingCount + storeCode
}

func (c *redisCache) GetPendingCount(ctx context.Context, storeCode string) (int64, error) {
	if c.client == nil {
		return 0, fmt.Errorf("redis not available")
	}
	return c.client.Get(ctx, c.pendingCountKey(storeCode)).Int64()
}

func (c *redisCache) SetPendingCount(ctx context.Context, storeCode string, count int64) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, c.pendingCountKey(storeCode), count, TTLPendingCount).Err()
}

func (c *redisCache) InvalidatePendingCount(ctx context.Context, storeCode string) error {
	return c.Delete(ctx, c.pendingCountKey(storeCode))
}
