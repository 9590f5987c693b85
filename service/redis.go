package service

import (
	"context"
	"errors"
	"time"

	"github.com/TIANLI0/MarkKit/config"
	"github.com/redis/go-redis/v9"
)

// ResultCache 缓存编码后的合成结果，未命中返回 (nil, false, nil)
type ResultCache interface {
	GetImage(ctx context.Context, key string) ([]byte, bool, error)
	SetImage(ctx context.Context, key string, data []byte) error
}

type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetImage 从缓存获取合成结果
func (s *RedisService) GetImage(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // 缓存未命中
		}
		return nil, false, err
	}
	return data, true, nil
}

// SetImage 写入合成结果
func (s *RedisService) SetImage(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// NullCache 不缓存任何内容，用于命令行或 Redis 不可用时
type NullCache struct{}

func (NullCache) GetImage(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NullCache) SetImage(ctx context.Context, key string, data []byte) error {
	return nil
}

var (
	_ ResultCache = (*RedisService)(nil)
	_ ResultCache = NullCache{}
)
