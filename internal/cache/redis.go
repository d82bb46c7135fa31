package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client caches slot-listing responses as raw JSON, keyed per experience and
// window. Occupancy goes stale the moment capacity changes, so every
// capacity-affecting write invalidates the experience's keys.
type Client struct {
	rdb      *redis.Client
	slotsTTL time.Duration
}

type Config struct {
	Addr     string
	Password string
	SlotsTTL time.Duration
}

func New(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb, slotsTTL: cfg.SlotsTTL}, nil
}

func slotsKey(experienceID int64, from, to string) string {
	return fmt.Sprintf("slots:%d:%s:%s", experienceID, from, to)
}

func slotsPattern(experienceID int64) string {
	return fmt.Sprintf("slots:%d:*", experienceID)
}

// GetSlotsRaw returns the cached raw JSON for a slot listing, or an error on
// miss. Raw bytes avoid an unmarshal/marshal round trip on the hot path.
func (c *Client) GetSlotsRaw(ctx context.Context, experienceID int64, from, to string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, slotsKey(experienceID, from, to)).Bytes()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SetSlotsRaw stores a slot listing with the configured TTL. Failures are
// returned, not fatal: the caller logs and serves from the database.
func (c *Client) SetSlotsRaw(ctx context.Context, experienceID int64, from, to string, payload []byte) error {
	return c.rdb.Set(ctx, slotsKey(experienceID, from, to), payload, c.slotsTTL).Err()
}

// InvalidateSlots drops every cached listing of the experience.
func (c *Client) InvalidateSlots(ctx context.Context, experienceID int64) error {
	iter := c.rdb.Scan(ctx, 0, slotsPattern(experienceID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
