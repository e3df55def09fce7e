// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package throttle

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// fixedWindow counts actions in a window that starts with the first action
// and expires with the key.
var fixedWindow = redis.NewScript(`
local key = KEYS[1]
local expiry = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])

local current = redis.call('GET', key)
if current == false then
	redis.call('SET', key, 1, 'EX', expiry)
	return 1
end

local count = tonumber(current)
if count >= limit then
	return count + 1
end
return redis.call('INCR', key)
`)

// Redis is a fixed window limiter shared by every instance using the same server.
type Redis struct {
	client redis.Scripter
	prefix string
	rule   Rule
}

// NewRedis creates a limiter storing its counters under prefix.
func NewRedis(client redis.Scripter, prefix string, rule Rule) *Redis {
	return &Redis{client: client, prefix: prefix, rule: rule}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if r.rule.Max <= 0 || r.rule.Window <= 0 {
		return true, nil
	}

	seconds := max(int(r.rule.Window.Seconds()), 1)
	redisKey := fmt.Sprintf("throttle:%s:%s", r.prefix, key)

	count, err := fixedWindow.Run(ctx, r.client, []string{redisKey}, seconds, r.rule.Max).Int64()
	if err != nil {
		return false, fmt.Errorf("evaluating rate limit: %w", err)
	}
	return count <= int64(r.rule.Max), nil
}
