package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"minicasino/internal/game"
)

// RoundStore persists resolved rounds so the full audit tuple stays
// retrievable by round id. Settlement writes upsert so a round created at
// bet time and settled later lands in the same row.
type RoundStore struct {
	pool *pgxpool.Pool
}

func NewRoundStore(pool *pgxpool.Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

func (s *RoundStore) SaveRound(ctx context.Context, r *game.Round) error {
	outcome, err := json.Marshal(r.Outcome)
	if err != nil {
		return fmt.Errorf("encode outcome for round %s: %w", r.ID, err)
	}

	var settledAt *time.Time
	if !r.SettledAt.IsZero() {
		settledAt = &r.SettledAt
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO rounds (id, game_type, server_seed, client_seed, nonce, result_digest, outcome, status, bet, payout, created_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    payout = EXCLUDED.payout,
		    settled_at = EXCLUDED.settled_at`,
		r.ID, string(r.GameType), r.ServerSeed, r.ClientSeed, r.Nonce,
		r.ResultDigest, outcome, string(r.Status), r.Bet, r.Payout,
		r.CreatedAt, settledAt)
	if err != nil {
		return fmt.Errorf("save round %s: %w", r.ID, err)
	}
	return nil
}

func (s *RoundStore) GetRound(ctx context.Context, id string) (*game.Round, error) {
	var (
		r         game.Round
		gameType  string
		status    string
		outcome   []byte
		settledAt *time.Time
	)

	err := s.pool.QueryRow(ctx, `
		SELECT id, game_type, server_seed, client_seed, nonce, result_digest, outcome, status, bet, payout, created_at, settled_at
		FROM rounds WHERE id = $1`, id).Scan(
		&r.ID, &gameType, &r.ServerSeed, &r.ClientSeed, &r.Nonce,
		&r.ResultDigest, &outcome, &status, &r.Bet, &r.Payout,
		&r.CreatedAt, &settledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: round %s", game.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load round %s: %w", id, err)
	}

	if err := json.Unmarshal(outcome, &r.Outcome); err != nil {
		return nil, fmt.Errorf("decode outcome for round %s: %w", id, err)
	}
	r.GameType = game.GameType(gameType)
	r.Status = game.RoundStatus(status)
	r.Commitment = game.HashCommitment(r.ServerSeed)
	if settledAt != nil {
		r.SettledAt = *settledAt
	}
	return &r, nil
}
