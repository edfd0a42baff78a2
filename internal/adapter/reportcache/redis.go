package reportcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
	"github.com/redis/go-redis/v9"
)

var _ port.ReportCache = (*Redis)(nil)

const (
	DefaultRedisKey = "catalog-audit:latest-report"

	pingTimeout = 5 * time.Second
)

var ErrEmptyAddress = errors.New("redis address is required")

// A Redis cache shares the latest report between service replicas.
//
// The report is stored as a single JSON value, so a replace is atomic.
type Redis struct {
	cl  *redis.Client
	key string
}

func NewRedis(addr, password string, db int, key string) (*Redis, error) {
	const op = "NewRedis"

	if addr == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyAddress)
	}
	if key == "" {
		key = DefaultRedisKey
	}

	cl := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := cl.Ping(ctx).Err(); err != nil {
		cl.Close()
		return nil, fmt.Errorf("%s: redis ping failed: %w", op, err)
	}

	slog.Info("redis is available", "op", op, "addr", addr)
	return &Redis{cl, key}, nil
}

func (c *Redis) Replace(ctx context.Context, r domain.Report) error {
	const op = "Redis.Replace"

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.cl.Set(ctx, c.key, b, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Redis) Latest(ctx context.Context) (domain.Report, error) {
	const op = "Redis.Latest"

	b, err := c.cl.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Report{}, fmt.Errorf("%s: %w", op, domain.ErrNoReport)
		}
		return domain.Report{}, fmt.Errorf("%s: %w", op, err)
	}

	var r domain.Report
	if err := json.Unmarshal(b, &r); err != nil {
		return domain.Report{}, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

func (c *Redis) Close() {
	const op = "Redis.Close"
	log := slog.With("op", op)

	log.Info("closing redis client...")
	if err := c.cl.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("redis client is closed")
}
