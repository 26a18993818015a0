// Package cache keeps read snapshots of whole boards. It is never a source
// of truth: writers invalidate after commit, readers fall back to storage.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/adanyl0v/go-boards/internal/models"
)

const (
	keyPrefix           = "boards:snapshot:"
	generationKeyPrefix = "boards:generation:"

	// generationTTL outlives any read that started before the last write.
	generationTTL = 24 * time.Hour
)

// BoardCache stores board views keyed by board id.
//
// Every Invalidate bumps the board's generation. A reader takes the
// generation before it loads the view from storage and passes it to Set,
// which drops the view when a write committed in between.
type BoardCache interface {
	// Get reports a miss with (nil, false, nil).
	Get(ctx context.Context, boardID int64) (*models.BoardView, bool, error)
	Generation(ctx context.Context, boardID int64) (int64, error)
	// Set reports whether the view was stored.
	Set(ctx context.Context, view *models.BoardView, generation int64) (bool, error)
	Invalidate(ctx context.Context, boardIDs ...int64) error
}

// NopBoardCache is used when no redis is configured.
type NopBoardCache struct{}

func (NopBoardCache) Get(context.Context, int64) (*models.BoardView, bool, error) {
	return nil, false, nil
}

func (NopBoardCache) Generation(context.Context, int64) (int64, error) { return 0, nil }

func (NopBoardCache) Set(context.Context, *models.BoardView, int64) (bool, error) {
	return false, nil
}

func (NopBoardCache) Invalidate(context.Context, ...int64) error { return nil }

// setIfGeneration writes the snapshot only while the generation key still
// holds the expected value. A missing key counts as generation 0.
var setIfGeneration = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ttl)
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

type RedisBoardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBoardCache(client *redis.Client, ttl time.Duration) *RedisBoardCache {
	if client == nil {
		panic("cache.NewRedisBoardCache: client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisBoardCache{client: client, ttl: ttl}
}

func (c *RedisBoardCache) Get(ctx context.Context, boardID int64) (*models.BoardView, bool, error) {
	data, err := c.client.Get(ctx, Key(boardID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var view models.BoardView
	if err = sonic.Unmarshal(data, &view); err != nil {
		// A snapshot we cannot decode is as good as absent.
		_ = c.client.Del(ctx, Key(boardID)).Err()
		return nil, false, nil
	}
	return &view, true, nil
}

func (c *RedisBoardCache) Generation(ctx context.Context, boardID int64) (int64, error) {
	generation, err := c.client.Get(ctx, GenerationKey(boardID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

func (c *RedisBoardCache) Set(ctx context.Context, view *models.BoardView, generation int64) (bool, error) {
	data, err := sonic.Marshal(view)
	if err != nil {
		return false, err
	}

	keys := []string{Key(view.Board.ID), GenerationKey(view.Board.ID)}
	stored, err := setIfGeneration.Run(ctx, c.client, keys,
		strconv.FormatInt(generation, 10), data, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *RedisBoardCache) Invalidate(ctx context.Context, boardIDs ...int64) error {
	if len(boardIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range boardIDs {
			pipe.Incr(ctx, GenerationKey(id))
			pipe.Expire(ctx, GenerationKey(id), generationTTL)
			pipe.Del(ctx, Key(id))
		}
		return nil
	})
	return err
}

func Key(boardID int64) string {
	return keyPrefix + strconv.FormatInt(boardID, 10)
}

func GenerationKey(boardID int64) string {
	return generationKeyPrefix + strconv.FormatInt(boardID, 10)
}
