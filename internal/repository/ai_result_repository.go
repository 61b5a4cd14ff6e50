package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/redis/go-redis/v9"
)

// AIResultRepository holds enrichment results between the AI step and the
// confirmation step, scoped to (user, schedule) and expiring after a TTL.
type AIResultRepository interface {
	Save(ctx context.Context, userID, scheduleID int64, result *transfer.AIResult) error
	// Get returns nil, nil when no result is held.
	Get(ctx context.Context, userID, scheduleID int64) (*transfer.AIResult, error)
	Delete(ctx context.Context, userID, scheduleID int64) error
}

type aiResultRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAIResultRepository(rdb *redis.Client, ttl time.Duration) AIResultRepository {
	return &aiResultRepository{rdb: rdb, ttl: ttl}
}

func aiResultKey(userID, scheduleID int64) string {
	return fmt.Sprintf("ai_result:%d:%d", userID, scheduleID)
}

func (r *aiResultRepository) Save(ctx context.Context, userID, scheduleID int64, result *transfer.AIResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	if err := r.rdb.Set(ctx, aiResultKey(userID, scheduleID), data, r.ttl).Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *aiResultRepository) Get(ctx context.Context, userID, scheduleID int64) (*transfer.AIResult, error) {
	data, err := r.rdb.Get(ctx, aiResultKey(userID, scheduleID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	var result transfer.AIResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("corrupt ai result: %w", err)
	}
	return &result, nil
}

func (r *aiResultRepository) Delete(ctx context.Context, userID, scheduleID int64) error {
	if err := r.rdb.Del(ctx, aiResultKey(userID, scheduleID)).Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
