// Package cache holds undecorated comment trees per gallery in Redis.
// Reaction counts are never cached; they are attached on every read.
//
// Each gallery has a version counter next to its tree. Invalidate bumps it,
// and Set only writes a tree read under the version that is still current,
// so a read racing a comment creation cannot re-populate a stale tree.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/gallery-platform/services/social/internal/store"
)

const keyPrefix = "social:thread:"

type RedisThreadCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisThreadCache(url string, ttl time.Duration) (*RedisThreadCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisThreadCache{Client: redis.NewClient(opt), TTL: ttl}, nil
}

func key(galleryID int64) string {
	return keyPrefix + strconv.FormatInt(galleryID, 10)
}

func versionKey(galleryID int64) string {
	return key(galleryID) + ":ver"
}

// Get returns the cached tree for galleryID, if any, together with the
// gallery's current version. The version is valid on a miss too and is the
// one to hand back to Set.
func (c *RedisThreadCache) Get(ctx context.Context, galleryID int64) ([]store.Comment, int64, bool, error) {
	vals, err := c.Client.MGet(ctx, key(galleryID), versionKey(galleryID)).Result()
	if err != nil {
		return nil, 0, false, err
	}
	version, err := parseVersion(vals[1])
	if err != nil {
		return nil, 0, false, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, version, false, nil
	}
	var tree []store.Comment
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, 0, false, err
	}
	return tree, version, true, nil
}

func parseVersion(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("thread cache version %q: %w", s, err)
	}
	return n, nil
}

// Set stores tree if galleryID is still at version. A tree read before a
// concurrent Invalidate is dropped silently.
func (c *RedisThreadCache) Set(ctx context.Context, galleryID, version int64, tree []store.Comment) error {
	b, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	vk := versionKey(galleryID)
	err = c.Client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(galleryID), b, c.TTL)
			return nil
		})
		return err
	}, vk)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisThreadCache) Invalidate(ctx context.Context, galleryID int64) error {
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(galleryID))
		pipe.Del(ctx, key(galleryID))
		return nil
	})
	return err
}

func (c *RedisThreadCache) Close() error {
	return c.Client.Close()
}
