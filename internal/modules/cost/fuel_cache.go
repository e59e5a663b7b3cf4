// README: Fuel price cache backed by Redis string keys with a TTL.
package cost

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fuelPriceKeyPrefix = "cost:fuel_price:%s"
	// DefaultFuelCacheTTL bounds how stale a cached real-time price may be.
	DefaultFuelCacheTTL = 6 * time.Hour
)

type RedisFuelPriceCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisFuelPriceCache(redis *redis.Client, ttl time.Duration) *RedisFuelPriceCache {
	if ttl <= 0 {
		ttl = DefaultFuelCacheTTL
	}
	return &RedisFuelPriceCache{redis: redis, ttl: ttl}
}

func (c *RedisFuelPriceCache) Get(ctx context.Context, fuelType FuelType) (float64, bool, error) {
	val, err := c.redis.Get(ctx, fuelPriceKey(fuelType)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached fuel price %q: %w", val, err)
	}
	return price, true, nil
}

func (c *RedisFuelPriceCache) Set(ctx context.Context, fuelType FuelType, price float64) error {
	return c.redis.Set(ctx, fuelPriceKey(fuelType), strconv.FormatFloat(price, 'f', 4, 64), c.ttl).Err()
}

func fuelPriceKey(ft FuelType) string {
	return fmt.Sprintf(fuelPriceKeyPrefix, string(ft))
}
