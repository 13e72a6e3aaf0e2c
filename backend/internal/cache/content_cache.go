package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	BaseTTL          = 10 * time.Minute // 基础过期时间
	Jitter           = 2 * time.Minute  // 随机抖动范围
	NullCacheTTL     = 30 * time.Second // 空值标记的过期时间
	emptyCacheMarker = "__nil__"        // 空值标记（防缓存穿透）
)

// 获取随机TTL，防止缓存雪崩
func randomTTL() time.Duration {
	return BaseTTL + time.Duration(rand.Int63n(int64(Jitter)))
}

// CachedContent 是内容缓存的载荷：Delta 线上 JSON + 对应版本号。
type CachedContent struct {
	Revision uint64 `json:"revision"`
	Delta    string `json:"delta"` // Delta 的 ops-list JSON
}

// ContentCache 文档内容的 cache-aside 读路径。
type ContentCache interface {
	// GetContent 先查缓存，未命中时经 singleflight 回源（fetch），
	// fetch 的 exists=false 表示文档不存在，会写空值标记。
	GetContent(ctx context.Context, docID string, fetch func() (CachedContent, bool, error)) (CachedContent, bool, error)
	// Invalidate 在写路径（提交/格式化）之后删键，下次读回源
	Invalidate(ctx context.Context, docID string) error
}

type redisContentCache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewRedisContentCache(rdb *redis.Client) ContentCache {
	return &redisContentCache{rdb: rdb}
}

func (c *redisContentCache) readCache(ctx context.Context, key string) (CachedContent, bool, bool, error) {
	res, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return CachedContent{}, false, false, nil
		}
		return CachedContent{}, false, false, err
	}
	// 空值标记：缓存命中，但文档不存在
	if res == emptyCacheMarker {
		return CachedContent{}, true, false, nil
	}
	var cc CachedContent
	if err := json.Unmarshal([]byte(res), &cc); err != nil {
		return CachedContent{}, false, false, err
	}
	return cc, true, true, nil
}

func (c *redisContentCache) writeCache(ctx context.Context, key string, cc CachedContent) error {
	b, err := json.Marshal(cc)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, randomTTL()).Err()
}

// 标记空值缓存，防止缓存穿透
func (c *redisContentCache) writeNullCache(ctx context.Context, key string) error {
	return c.rdb.Set(ctx, key, emptyCacheMarker, NullCacheTTL).Err()
}

// 组合策略（Singleflight + cache-aside）：
// 同一文档的并发未命中只有一个请求真正回源，其余共享结果。
func (c *redisContentCache) GetContent(ctx context.Context, docID string, fetch func() (CachedContent, bool, error)) (CachedContent, bool, error) {
	key := contentKey(docID)
	val, err, _ := c.sf.Do(key, func() (interface{}, error) {
		cc, hit, exists, err := c.readCache(ctx, key)
		if err != nil {
			return nil, err
		}
		if hit {
			if !exists {
				return nil, nil
			}
			return cc, nil
		}

		// 回源（Redis Miss）
		cc, exists, err = fetch()
		if err != nil {
			return nil, err
		}
		if !exists {
			_ = c.writeNullCache(ctx, key)
			return nil, nil
		}
		_ = c.writeCache(ctx, key, cc)
		return cc, nil
	})
	if err != nil {
		return CachedContent{}, false, err
	}
	if val == nil {
		return CachedContent{}, false, nil
	}
	cc, ok := val.(CachedContent)
	if !ok {
		return CachedContent{}, false, errors.New("internal type error")
	}
	return cc, true, nil
}

func (c *redisContentCache) Invalidate(ctx context.Context, docID string) error {
	return c.rdb.Del(ctx, contentKey(docID)).Err()
}
