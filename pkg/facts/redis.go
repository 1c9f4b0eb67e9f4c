package facts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crate/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
)

const (
	fieldPrice   = "price"
	fieldBalance = "balance"
)

// Redis reads facts from the hash crate:facts:<workspace_id>. Fields of
// crate:facts:automation:<automation_id> override the workspace values.
// price and balance are numeric; every other field lands in Custom.
type Redis struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedis(ctx context.Context, logger *slog.Logger, redisURL string) (*Redis, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisWithClient(logger, client), nil
}

func NewRedisWithClient(logger *slog.Logger, client redis.UniversalClient) *Redis {
	return &Redis{
		client: client,
		logger: logger.With("module", "redis_facts"),
	}
}

func WorkspaceKey(workspaceID string) string {
	return "crate:facts:" + workspaceID
}

func AutomationKey(automationID string) string {
	return "crate:facts:automation:" + automationID
}

func (r *Redis) Facts(ctx context.Context, workspace *models.Workspace, automation *models.Automation, now time.Time) (models.FactSnapshot, error) {
	pipe := r.client.Pipeline()
	workspaceFields := pipe.HGetAll(ctx, WorkspaceKey(workspace.ID))
	automationFields := pipe.HGetAll(ctx, AutomationKey(automation.ID))

	if _, err := pipe.Exec(ctx); err != nil {
		return models.FactSnapshot{}, fmt.Errorf("%w: %w", ErrFactsUnavailable, err)
	}

	fields := workspaceFields.Val()
	for k, v := range automationFields.Val() {
		fields[k] = v
	}

	if len(fields) == 0 {
		return models.FactSnapshot{}, fmt.Errorf("%w: no facts for workspace %s", ErrFactsUnavailable, workspace.ID)
	}

	return Snapshot(fields, now)
}

// Snapshot builds a fact snapshot from string fields.
func Snapshot(fields map[string]string, now time.Time) (models.FactSnapshot, error) {
	snapshot := models.FactSnapshot{Now: now}

	for k, v := range fields {
		switch k {
		case fieldPrice:
			price, err := cast.ToFloat64E(v)
			if err != nil {
				return models.FactSnapshot{}, fmt.Errorf("%w: invalid price %q", ErrFactsUnavailable, v)
			}

			snapshot.Price = price
		case fieldBalance:
			balance, err := cast.ToFloat64E(v)
			if err != nil {
				return models.FactSnapshot{}, fmt.Errorf("%w: invalid balance %q", ErrFactsUnavailable, v)
			}

			snapshot.Balance = balance
		default:
			if snapshot.Custom == nil {
				snapshot.Custom = make(map[string]any)
			}

			if number, err := cast.ToFloat64E(v); err == nil {
				snapshot.Custom[k] = number
			} else {
				snapshot.Custom[k] = v
			}
		}
	}

	return snapshot, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
