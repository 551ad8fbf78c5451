package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedis connects the cache and job-queue client. timeout bounds dialing and
// every non-blocking command; BRPOP in the worker pool extends its own read
// deadline. The ping shares the caller's context so startup can be cancelled.
func NewRedis(ctx context.Context, redisURL string, timeout time.Duration, poolSize int) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: url inválida: %w", err)
	}
	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}
	// Each worker parks one connection on BRPOP; the HTTP side needs its own.
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Int("pool", opts.PoolSize).Msg("redis: conectado")
	return rdb, nil
}
