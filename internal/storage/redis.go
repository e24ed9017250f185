package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"animeportal/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	defaultViewsKey     = "animeportal:views"
	defaultViewsChannel = "animeportal:views:events"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Key is the hash holding one field per article. Channel carries
	// increments to other instances.
	Key     string
	Channel string
}

// RedisViews counts views in a redis hash and announces every increment on a
// pub/sub channel.
type RedisViews struct {
	client  *redis.Client
	key     string
	channel string
}

// NewRedisViews connects to redis and verifies connectivity
func NewRedisViews(cfg RedisConfig) (*RedisViews, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	rv := &RedisViews{client: client, key: cfg.Key, channel: cfg.Channel}
	if rv.key == "" {
		rv.key = defaultViewsKey
	}
	if rv.channel == "" {
		rv.channel = defaultViewsChannel
	}
	return rv, nil
}

func (r *RedisViews) IncrementView(ctx context.Context, articleID string) (int64, error) {
	views, err := r.client.HIncrBy(ctx, r.key, articleID, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment views for %s: %w", articleID, err)
	}

	payload, err := json.Marshal(models.ViewEvent{ArticleID: articleID, Views: views, At: time.Now().UTC()})
	if err == nil {
		if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
			log.Printf("Warning: failed to publish view event for %s: %v", articleID, err)
		}
	}
	return views, nil
}

func (r *RedisViews) ViewCounts(ctx context.Context) (map[string]int64, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read view counts: %w", err)
	}
	counts := make(map[string]int64, len(fields))
	for id, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Printf("Warning: ignoring non-numeric view count for %s: %q", id, raw)
			continue
		}
		counts[id] = n
	}
	return counts, nil
}

func (r *RedisViews) SeedViews(ctx context.Context, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for id, n := range counts {
		pipe.HSetNX(ctx, r.key, id, n)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed view counts: %w", err)
	}
	return nil
}

// Watch delivers view events published by any instance to fn until ctx ends.
func (r *RedisViews) Watch(ctx context.Context, fn func(models.ViewEvent)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev models.ViewEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("Warning: dropping malformed view event: %v", err)
				continue
			}
			fn(ev)
		}
	}
}

func (r *RedisViews) Close() error {
	return r.client.Close()
}
