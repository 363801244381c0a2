package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const DefaultRedisKey = "clrm-build-results"

// RedisReporter pushes JSON results onto a redis list.
type RedisReporter struct {
	redis *redis.Client
	key   string
}

var _ Reporter = (*RedisReporter)(nil)

func NewRedisReporter(redis *redis.Client, key string) *RedisReporter {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisReporter{
		redis: redis,
		key:   key,
	}
}

func (r *RedisReporter) Report(ctx context.Context, res *Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if err := r.redis.RPush(ctx, r.key, b).Err(); err != nil {
		return fmt.Errorf("pushing result to %s: %w", r.key, err)
	}
	return nil
}

// Results reads the last n results, oldest first.
func (r *RedisReporter) Results(ctx context.Context, n int64) ([]*Result, error) {
	raw, err := r.redis.LRange(ctx, r.key, -n, -1).Result()
	if err != nil {
		return nil, err
	}
	ret := make([]*Result, 0, len(raw))
	for _, s := range raw {
		var res Result
		if err := json.Unmarshal([]byte(s), &res); err != nil {
			return nil, fmt.Errorf("decoding result: %w", err)
		}
		ret = append(ret, &res)
	}
	return ret, nil
}
