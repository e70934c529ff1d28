package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campus-sis/config"
)

// Client Redis 客户端封装
// 当前用于 Token 黑名单、导入目标上下文锁和速率限制
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 建立连接并 Ping 确认可用，失败直接返回错误由上层决定降级策略
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	logger.Info("Redis 已连接", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 写入黑名单，TTL 取 Token 剩余有效期
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // 已过期的 Token 不占黑名单空间
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 判断 JWT ID 是否已被注销
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 导入目标上下文锁 ──

const importLockPrefix = "import:lock:"

// AcquireImportLock 对导入目标上下文加锁（SetNX），防止同一目标并发提交。
// 返回 false 表示锁已被占用。
func (c *Client) AcquireImportLock(ctx context.Context, targetContextID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, importLockPrefix+targetContextID, "1", ttl).Result()
}

// ReleaseImportLock 释放导入目标上下文锁
func (c *Client) ReleaseImportLock(ctx context.Context, targetContextID string) error {
	return c.rdb.Del(ctx, importLockPrefix+targetContextID).Err()
}

// ── 速率限制 ──

// CheckRateLimit 固定窗口计数限流：窗口内第 limit+1 次请求返回 false
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
