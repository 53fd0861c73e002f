package db

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// LimitedRedisClient is the limited set of functionality expected from the redis client in this adapter.
// This allows for easy mocking and swapping of the client. The universal redis client interface is way too big.
type LimitedRedisClient interface {
	// General commands

	// DEL key [key ...]
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	// PING
	Ping(ctx context.Context) *redis.StatusCmd

	// String commands

	// MGET key [key ...]
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd

	// Scripting commands

	// EVAL script numkeys [key [key ...]] [arg [arg ...]]
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}
