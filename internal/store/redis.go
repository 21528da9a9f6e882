package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"imagestudio/internal/domain"
)

const (
	redisKeyPrefix = "imagestudio:prediction:"
	redisIndexKey  = "imagestudio:predictions"
)

// Redis stores each prediction as a JSON value and tracks known IDs in a
// set. Terminal records receive the retention TTL at the moment they are
// patched terminal, so redis itself handles eviction; Prune only sweeps
// index entries whose record has already expired.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client. A zero ttl disables expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Put(ctx context.Context, p *domain.Prediction) error {
	payload, err := json.Marshal(predictionToWire(p))
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}
	ok, err := r.client.SetNX(ctx, redisKeyPrefix+p.ID, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("store prediction: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyExists
	}
	if err := r.client.SAdd(ctx, redisIndexKey, p.ID).Err(); err != nil {
		return fmt.Errorf("index prediction: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (*domain.Prediction, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load prediction: %w", err)
	}
	var wire wirePrediction
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return wire.toDomain(), nil
}

func (r *Redis) Patch(ctx context.Context, id string, patch Patch) error {
	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	applyPatch(p, patch)
	payload, err := json.Marshal(predictionToWire(p))
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}
	expiry := time.Duration(0)
	if r.ttl > 0 && p.Status.Terminal() {
		expiry = r.ttl
	}
	if err := r.client.Set(ctx, redisKeyPrefix+id, payload, expiry).Err(); err != nil {
		return fmt.Errorf("store prediction: %w", err)
	}
	return nil
}

func (r *Redis) IDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return ids, nil
}

func (r *Redis) Prune(ctx context.Context, _ time.Time) (int, error) {
	ids, err := r.IDs(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		n, err := r.client.Exists(ctx, redisKeyPrefix+id).Result()
		if err != nil {
			return removed, fmt.Errorf("check prediction: %w", err)
		}
		if n == 0 {
			if err := r.client.SRem(ctx, redisIndexKey, id).Err(); err != nil {
				return removed, fmt.Errorf("unindex prediction: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}

// wirePrediction is the stored representation; RemoteID needs an explicit
// tag because the domain type hides it from API responses.
type wirePrediction struct {
	ID          string                  `json:"id"`
	Type        domain.PredictionType   `json:"type,omitempty"`
	Status      domain.PredictionStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Input       json.RawMessage         `json:"input"`
	Output      json.RawMessage         `json:"output,omitempty"`
	Error       string                  `json:"error,omitempty"`
	RemoteID    string                  `json:"remote_id,omitempty"`
}

func predictionToWire(p *domain.Prediction) wirePrediction {
	return wirePrediction{
		ID:          p.ID,
		Type:        p.Type,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		CompletedAt: p.CompletedAt,
		Input:       p.Input,
		Output:      p.Output,
		Error:       p.Error,
		RemoteID:    p.RemoteID,
	}
}

func (w wirePrediction) toDomain() *domain.Prediction {
	return &domain.Prediction{
		ID:          w.ID,
		Type:        w.Type,
		Status:      w.Status,
		CreatedAt:   w.CreatedAt,
		CompletedAt: w.CompletedAt,
		Input:       w.Input,
		Output:      w.Output,
		Error:       w.Error,
		RemoteID:    w.RemoteID,
	}
}
