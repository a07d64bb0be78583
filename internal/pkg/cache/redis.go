package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"robochat/internal/config"
)

// RedisCache Redis 缓存封装
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 创建 Redis 缓存客户端
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// Set 设置缓存
func (c *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Get 获取缓存，key 不存在时返回 redis.Nil
func (c *RedisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetNX 仅在 key 不存在时写入，返回是否写入成功
func (c *RedisCache) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, expiration).Result()
}

// 仅当 key 的值等于 ARGV[1] 时删除
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DeleteIfEqual 值匹配时删除 key，返回是否删除
func (c *RedisCache) DeleteIfEqual(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, c.client, []string{key}, value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete 删除缓存
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// Ping 检查连接
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// IsNil 判断是否为 key 不存在错误
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// 会话 key 模式
const (
	SessionKeyPrefix  = "robochat:session:"
	SessionBusySuffix = ":busy"
)

// SessionKey 会话对话记录 key
func SessionKey(id string) string {
	return SessionKeyPrefix + id
}

// SessionBusyKey 会话进行中标记 key
func SessionBusyKey(id string) string {
	return SessionKeyPrefix + id + SessionBusySuffix
}
