package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxLog is the append-only transaction record. Rows are only ever inserted;
// settlement integrity depends on exactly one entry per balance delta.
type TxLog struct {
	pool *pgxpool.Pool
}

func NewTxLog(pool *pgxpool.Pool) *TxLog {
	return &TxLog{pool: pool}
}

func (l *TxLog) Append(ctx context.Context, userID, txType string, amount float64, currency, status, description string) (string, error) {
	id := uuid.New().String()
	_, err := l.pool.Exec(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, currency, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, userID, txType, amount, currency, status, description)
	if err != nil {
		return "", fmt.Errorf("append transaction for %s: %w", userID, err)
	}
	return id, nil
}
