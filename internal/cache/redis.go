package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkarpov/flightbooking/config"
	"github.com/dkarpov/flightbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds catalog lookups. The catalog is static, so entries only
// ever age out by TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
	}
}

func (c *RedisCache) GetFlight(ctx context.Context, id string) (*domain.Flight, error) {
	data, err := c.client.Get(ctx, flightKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var f domain.Flight
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *RedisCache) SetFlight(ctx context.Context, f domain.Flight) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightKey(f.ID), payload, c.ttl).Err()
}

func (c *RedisCache) GetSearch(ctx context.Context, key string) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, searchKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetSearch(ctx context.Context, key string, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, searchKey(key), payload, c.ttl).Err()
}

func flightKey(id string) string {
	return fmt.Sprintf("cache:flight:%s", id)
}

func searchKey(key string) string {
	return fmt.Sprintf("cache:flights:search:%s", key)
}
