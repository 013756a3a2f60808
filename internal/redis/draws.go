package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

const drawKeyPrefix = "bundle:draw:"

// clearScript deletes every key matching ARGV[1]
var clearScript = redis.NewScript(`
	local cursor = "0"
	local removed = 0
	repeat
		local res = redis.call('SCAN', cursor, 'MATCH', ARGV[1], 'COUNT', 100)
		cursor = res[1]
		for _, key in ipairs(res[2]) do
			removed = removed + redis.call('DEL', key)
		end
	until cursor == "0"
	return removed
`)

// DrawStore keeps pending bundle draws in Redis with a TTL so that any
// api-gateway replica can finalize them.
type DrawStore struct {
	client *redis.Client
}

// NewDrawStore wraps a connected client
func NewDrawStore(client *redis.Client) *DrawStore {
	return &DrawStore{client: client}
}

func drawKey(id string) string {
	return drawKeyPrefix + id
}

func (d *DrawStore) Save(ctx context.Context, draw models.Draw, ttl time.Duration) error {
	data, err := json.Marshal(draw)
	if err != nil {
		return fmt.Errorf("failed to marshal draw: %w", err)
	}
	if err := d.client.Set(ctx, drawKey(draw.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draw: %w", err)
	}
	return nil
}

func (d *DrawStore) Get(ctx context.Context, id string) (models.Draw, error) {
	data, err := d.client.Get(ctx, drawKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Draw{}, models.ErrDrawNotFound
	}
	if err != nil {
		return models.Draw{}, fmt.Errorf("failed to get draw: %w", err)
	}
	var draw models.Draw
	if err := json.Unmarshal(data, &draw); err != nil {
		return models.Draw{}, fmt.Errorf("failed to decode draw: %w", err)
	}
	return draw, nil
}

func (d *DrawStore) Delete(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, drawKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete draw: %w", err)
	}
	return nil
}

func (d *DrawStore) Clear(ctx context.Context) error {
	if err := clearScript.Run(ctx, d.client, nil, drawKeyPrefix+"*").Err(); err != nil {
		return fmt.Errorf("failed to clear draws: %w", err)
	}
	return nil
}
