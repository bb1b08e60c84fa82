package notif

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tenantlink/internal/config"
	"tenantlink/internal/logger"
)

// RedisPublisher fans stored notifications out on "<prefix>:<userId>" so
// connected clients can refresh without polling.
type RedisPublisher struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisPublisher returns nil when redis is disabled.
func NewRedisPublisher(cfg config.RedisConfig, log *logger.Logger) (*RedisPublisher, error) {
	if !cfg.Enabled {
		log.Info("redis realtime channel disabled")
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("redis realtime channel connected", "addr", cfg.Addr)
	return NewRedisPublisherWithClient(rdb, cfg.ChannelPrefix), nil
}

func NewRedisPublisherWithClient(rdb goredis.UniversalClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisPublisher{rdb: rdb, prefix: prefix}
}

func (p *RedisPublisher) Channel(userID string) string {
	return p.prefix + ":" + userID
}

func (p *RedisPublisher) Publish(ctx context.Context, userID string, payload interface{}) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis publisher not initialized")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.Channel(userID), raw).Err()
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
