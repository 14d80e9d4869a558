// Package ledger implements the balance side of the core's collaborator
// contracts on Redis. Deltas use IncrByFloat so concurrent bets and payouts
// on one user serialize inside Redis instead of racing a read-then-write.
package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"minicasino/internal/game"
)

const BALANCE_KEY_PREFIX = "casino:balance:"

type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) GetBalance(ctx context.Context, userID string) (float64, error) {
	balance, err := l.client.Get(ctx, BALANCE_KEY_PREFIX+userID).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance read for %s: %w", userID, err)
	}
	return balance, nil
}

// ApplyDelta atomically shifts a balance. A delta that would leave the
// balance negative is rolled back and rejected, which makes the deduction
// path safe against the lost-update hazard without any client-side lock.
func (l *RedisLedger) ApplyDelta(ctx context.Context, userID string, amount float64) (float64, error) {
	key := BALANCE_KEY_PREFIX + userID
	newBalance, err := l.client.IncrByFloat(ctx, key, amount).Result()
	if err != nil {
		return 0, fmt.Errorf("balance update for %s: %w", userID, err)
	}
	if newBalance < 0 {
		if rbErr := l.client.IncrByFloat(ctx, key, -amount).Err(); rbErr != nil {
			return 0, fmt.Errorf("rollback failed for %s: %v (after overdraw of %.2f)", userID, rbErr, amount)
		}
		return 0, fmt.Errorf("%w: delta %.2f overdraws balance", game.ErrInsufficientFunds, amount)
	}
	return newBalance, nil
}

// SetBalance overwrites a balance directly. Used by the admin/test endpoint
// only; gameplay always goes through ApplyDelta.
func (l *RedisLedger) SetBalance(ctx context.Context, userID string, amount float64) error {
	return l.client.Set(ctx, BALANCE_KEY_PREFIX+userID, amount, 0).Err()
}
