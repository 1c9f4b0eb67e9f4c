// Package redis provides Redis persistence of workspaces and automations.
// Records are JSON strings; sets index workspaces and each workspace's automations.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/crate/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "crate"

// Persistence implements persistence.Persistence on top of a Redis client.
type Persistence struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewPersistence parses a redis:// URL and verifies the server answers.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewPersistenceWithClient(logger, client), nil
}

func NewPersistenceWithClient(logger *slog.Logger, client redis.UniversalClient) *Persistence {
	return &Persistence{
		client: client,
		logger: logger.With("module", "redis_persistence"),
	}
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func workspaceKey(id string) string {
	return keyPrefix + ":workspace:" + id
}

func workspacesIndexKey() string {
	return keyPrefix + ":workspaces"
}

func automationKey(id string) string {
	return keyPrefix + ":automation:" + id
}

func workspaceAutomationsKey(workspaceID string) string {
	return keyPrefix + ":workspace:" + workspaceID + ":automations"
}

// get loads key into v, reporting false when the key does not exist.
func (p *Persistence) get(ctx context.Context, key string, v any) (bool, error) {
	body, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal: %w", err)
	}

	return true, nil
}

// getMany loads every key that still exists, skipping index entries whose
// record is gone.
func getMany[T any](ctx context.Context, client redis.UniversalClient, keys []string) ([]*T, error) {
	records := make([]*T, 0, len(keys))
	if len(keys) == 0 {
		return records, nil
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, value := range values {
		body, ok := value.(string)
		if !ok {
			continue
		}

		var record T
		if err := json.Unmarshal([]byte(body), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal: %w", err)
		}

		records = append(records, &record)
	}

	return records, nil
}

var _ persistence.Persistence = (*Persistence)(nil)
