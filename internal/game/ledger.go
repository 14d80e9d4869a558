package game

import "context"

// Transaction types appended to the log by the core.
const (
	TxGameBet    = "game_bet"
	TxCrashWin   = "crash_win"
	TxDiceWin    = "dice_win"
	TxMinesWin   = "mines_win"
	TxRoomWin    = "room_win"
	TxGameRefund = "game_refund"

	TxStatusCompleted = "completed"

	DEFAULT_CURRENCY = "USD"
)

// UserLedger is the balance collaborator. ApplyDelta must be atomic per
// user: a concurrent bet and payout on the same user never lose an update.
// A delta that would drive the balance negative is rejected with
// ErrInsufficientFunds and leaves the balance unchanged.
type UserLedger interface {
	GetBalance(ctx context.Context, userID string) (float64, error)
	ApplyDelta(ctx context.Context, userID string, amount float64) (float64, error)
}

// TransactionLog is the append-only record of every settlement effect.
// Exactly one entry per balance delta.
type TransactionLog interface {
	Append(ctx context.Context, userID, txType string, amount float64, currency, status, description string) (string, error)
}

// RoundStore persists resolved rounds so the audit tuple stays retrievable
// by round id. A round is only reported settled once its write is durable.
type RoundStore interface {
	SaveRound(ctx context.Context, r *Round) error
	GetRound(ctx context.Context, id string) (*Round, error)
}
