package gallery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisListPrefix = "imagestudio:gallery:"

// Redis stores each owner's gallery as a redis list of JSON items, pushed
// to the head so LRANGE returns newest first.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Add(ctx context.Context, owner string, item Item) (Item, error) {
	item = prepare(item)
	payload, err := json.Marshal(item)
	if err != nil {
		return Item{}, fmt.Errorf("encode gallery item: %w", err)
	}
	if err := r.client.LPush(ctx, redisListPrefix+owner, payload).Err(); err != nil {
		return Item{}, fmt.Errorf("store gallery item: %w", err)
	}
	return item, nil
}

func (r *Redis) List(ctx context.Context, owner string) ([]Item, error) {
	raw, err := r.client.LRange(ctx, redisListPrefix+owner, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}
	items := make([]Item, 0, len(raw))
	for _, entry := range raw {
		var item Item
		if err := json.Unmarshal([]byte(entry), &item); err != nil {
			return nil, fmt.Errorf("decode gallery item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Redis) Remove(ctx context.Context, owner, id string) error {
	raw, err := r.client.LRange(ctx, redisListPrefix+owner, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("load gallery: %w", err)
	}
	for _, entry := range raw {
		var item Item
		if err := json.Unmarshal([]byte(entry), &item); err != nil {
			continue
		}
		if item.ID == id {
			if err := r.client.LRem(ctx, redisListPrefix+owner, 1, entry).Err(); err != nil {
				return fmt.Errorf("remove gallery item: %w", err)
			}
			return nil
		}
	}
	return ErrNotFound
}

func (r *Redis) Clear(ctx context.Context, owner string) error {
	if err := r.client.Del(ctx, redisListPrefix+owner).Err(); err != nil {
		return fmt.Errorf("clear gallery: %w", err)
	}
	return nil
}
