package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verte-zerg/gymtrack/internal/model"
)

// DefaultRedisChannel is the channel results are announced on.
const DefaultRedisChannel = "gymtrack:results"

// RedisClient is the part of *redis.Client the publisher needs.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher upserts results into one hash per (activity, day), keyed by
// subject, and announces each record on a channel for live dashboards.
type RedisPublisher struct {
	client  RedisClient
	channel string
}

// NewRedisPublisher returns a publisher. An empty channel uses
// DefaultRedisChannel.
func NewRedisPublisher(client RedisClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// ResultKey is the hash holding one activity's results for one day.
func ResultKey(activityID, day string) string {
	return "gymtrack:results:" + activityID + ":" + day
}

// Emit implements Sink.
func (p *RedisPublisher) Emit(ctx context.Context, rec model.ResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := p.client.HSet(ctx, ResultKey(rec.ActivityID, rec.Day()), rec.SubjectID, data).Err(); err != nil {
		return fmt.Errorf("failed to store result in redis: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}
