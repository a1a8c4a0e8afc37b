package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisRateCounter 是固定窗口计数所需的 Redis 命令子集，*redis.Client 满足该接口。
type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// hitWindow 在 key 对应的固定窗口内计数一次并返回当前次数。
// 每次都以 NX 方式补设过期时间，避免首次 EXPIRE 失败后 key 永不过期。
func hitWindow(ctx context.Context, client redisRateCounter, key string, window time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = client.ExpireNX(ctx, key, window).Err()
	return count, nil
}
