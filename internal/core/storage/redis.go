package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// RedisStore 以單一 key 儲存整份 JSON
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore 創建 Redis 儲存並測試連線
func NewRedisStore(cfg *config.StorageConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 測試連接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.Key), nil
}

// NewRedisStoreWithClient 使用既有客戶端
func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    key,
	}
}

// Name 後端名稱
func (s *RedisStore) Name() string {
	return "redis"
}

// Persist 寫入整份快照
func (s *RedisStore) Persist(ctx context.Context, snapshot *pantry.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return persistenceFailure(s.Name(), err)
	}
	return nil
}

// Load 讀取快照；key 不存在回傳 ErrNoData
func (s *RedisStore) Load(ctx context.Context) (*pantry.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
