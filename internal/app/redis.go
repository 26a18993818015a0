package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adanyl0v/go-boards/internal/cache"
	"github.com/adanyl0v/go-boards/internal/config"
)

const redisPingTimeout = 5 * time.Second

var (
	globalRedisClient *redis.Client
	globalBoardCache  cache.BoardCache = cache.NopBoardCache{}
)

// MustConnectRedis enables the board snapshot cache. Without REDIS_URL
// every read goes to storage.
func MustConnectRedis() {
	cfg := config.Global().Redis
	if cfg.URL == "" {
		globalLogger.Info().Msg("redis url is not set, board cache disabled")
		return
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to parse redis url")
		panic(err)
	}
	globalRedisClient = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err = globalRedisClient.Ping(ctx).Err(); err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to ping redis")
		panic(err)
	}
	globalBoardCache = cache.NewRedisBoardCache(globalRedisClient, cfg.SnapshotTTL)

	globalLogger.Info().
		Str("addr", opts.Addr).
		Dur("ttl", cfg.SnapshotTTL).
		Msg("connected to redis")
}

func DisconnectRedis() {
	if globalRedisClient == nil {
		return
	}
	if err := globalRedisClient.Close(); err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to disconnect from redis")
		return
	}
	globalLogger.Info().Msg("disconnected from redis")
}
