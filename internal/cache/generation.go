package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Generation versions cache keys. Bumping it makes every key built before
// the bump unreachable, which invalidates a whole family of entries
// without enumerating them.
type Generation interface {
	Current(ctx context.Context) uint64
	Bump(ctx context.Context)
}

// LocalGeneration is an in-process counter.
type LocalGeneration struct {
	n atomic.Uint64
}

func (g *LocalGeneration) Current(context.Context) uint64 { return g.n.Load() }
func (g *LocalGeneration) Bump(context.Context)           { g.n.Add(1) }

// RedisGeneration shares the counter between processes through INCR.
type RedisGeneration struct {
	client redis.Cmdable
	key    string
}

func NewRedisGeneration(client redis.Cmdable, key string) *RedisGeneration {
	return &RedisGeneration{client: client, key: key}
}

func (g *RedisGeneration) Current(ctx context.Context) uint64 {
	n, err := g.client.Get(ctx, g.key).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "Read cache generation failed", "error", err)
	}
	return n
}

func (g *RedisGeneration) Bump(ctx context.Context) {
	if err := g.client.Incr(ctx, g.key).Err(); err != nil {
		slog.WarnContext(ctx, "Bump cache generation failed", "error", err)
	}
}

// Key joins parts under the current generation, e.g. "g3:dashboard:2025-06".
func Key(ctx context.Context, g Generation, parts ...string) string {
	return "g" + strconv.FormatUint(g.Current(ctx), 10) + ":" + strings.Join(parts, ":")
}
