package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPublishTimeout = 200 * time.Millisecond

// RedisEmitter publishes every event as {"event","data"} JSON on a channel so
// other processes can follow document changes.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

type redisEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	At    int64  `json:"at"`
}

// NewRedisEmitter connects using a redis:// URL.
func NewRedisEmitter(ctx context.Context, url, channel string) (*RedisEmitter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisEmitter{client: client, channel: channel}, nil
}

func (r *RedisEmitter) Emit(ctx context.Context, event string, data any) {
	payload, err := json.Marshal(redisEnvelope{Event: event, Data: data, At: time.Now().UnixMilli()})
	if err != nil {
		log.Printf("[REDIS] marshal %s: %v", event, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), redisPublishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		log.Printf("[REDIS] publish %s: %v", event, err)
	}
}

func (r *RedisEmitter) Close() error {
	return r.client.Close()
}
