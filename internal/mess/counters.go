package mess

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counters tracks how many coupons were redeemed per sitting per day, kept
// in Redis so the mess office dashboard survives restarts. Values expire
// after two days; the redemption table stays the source of truth.
type Counters struct {
	client *redis.Client
}

// NewCounters creates a counter store.
func NewCounters(client *redis.Client) *Counters {
	return &Counters{client: client}
}

func counterKey(date string, meal Meal) string {
	return "mess:count:" + date + ":" + string(meal)
}

// Incr bumps the redeemed count for a sitting.
func (c *Counters) Incr(ctx context.Context, date string, meal Meal) error {
	key := counterKey(date, meal)
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, 48*time.Hour).Err()
}

// Day returns redeemed counts for every sitting of a date. Missing keys
// read as zero.
func (c *Counters) Day(ctx context.Context, date string) (map[Meal]int64, error) {
	counts := make(map[Meal]int64, 3)
	for _, meal := range []Meal{MealBreakfast, MealLunch, MealDinner} {
		n, err := c.client.Get(ctx, counterKey(date, meal)).Int64()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		counts[meal] = n
	}
	return counts, nil
}
