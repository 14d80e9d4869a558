package game

import (
	"context"
	"fmt"
	"log"
)

const (
	MIN_BET_AMOUNT = 1.0
	MAX_BET_AMOUNT = 10000.0
)

// Deps are the external collaborators every engine consumes. The core never
// talks to storage directly; balances and records go through these typed
// contracts.
type Deps struct {
	Ledger UserLedger
	TxLog  TransactionLog
	Rounds RoundStore
	States StateStore
	Hub    *Hub
}

type GameEngine interface {
	GetType() GameType
	Start(ctx context.Context) error
	Stop() error
	PlaceBet(ctx context.Context, req interface{}) (interface{}, error)
	ProcessAction(ctx context.Context, action string, req interface{}) (interface{}, error)
}

type GameFactory struct {
	engines map[GameType]GameEngine
	ctx     context.Context
}

func NewGameFactory() *GameFactory {
	return &GameFactory{
		engines: make(map[GameType]GameEngine),
		ctx:     context.Background(),
	}
}

func (gf *GameFactory) RegisterEngine(engine GameEngine) {
	gf.engines[engine.GetType()] = engine
}

func (gf *GameFactory) GetEngine(gameType GameType) (GameEngine, bool) {
	engine, exists := gf.engines[gameType]
	return engine, exists
}

func (gf *GameFactory) StartAll() error {
	for gameType, engine := range gf.engines {
		if err := engine.Start(gf.ctx); err != nil {
			return err
		}
		log.Printf("[FACTORY] Started %s engine", gameType)
	}
	return nil
}

func (gf *GameFactory) StopAll() error {
	for gameType, engine := range gf.engines {
		if err := engine.Stop(); err != nil {
			return err
		}
		log.Printf("[FACTORY] Stopped %s engine", gameType)
	}
	return nil
}

func validateBetAmount(amount float64) error {
	if amount < MIN_BET_AMOUNT || amount > MAX_BET_AMOUNT {
		return fmt.Errorf("%w: bet must be between %.2f and %.2f", ErrValidation, MIN_BET_AMOUNT, MAX_BET_AMOUNT)
	}
	return nil
}

// debitStake checks and deducts the stake as one read-then-write unit from
// the caller's point of view; the ledger's ApplyDelta guards the race.
func debitStake(ctx context.Context, ledger UserLedger, userID string, amount float64) (float64, error) {
	balance, err := ledger.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("ledger read failed: %w", err)
	}
	if balance < amount {
		return balance, fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientFunds, balance, amount)
	}
	return ledger.ApplyDelta(ctx, userID, -amount)
}

// refundStake is the compensation path for any failure after the stake was
// deducted: a bet deducted for a round that never resolves is the one state
// this package must never leave behind.
func refundStake(ctx context.Context, ledger UserLedger, userID string, amount float64) {
	if _, err := ledger.ApplyDelta(ctx, userID, amount); err != nil {
		log.Printf("[GAME] CRITICAL: refund of %.2f for user %s failed: %v", amount, userID, err)
	}
}

// reverseCredit undoes a payout credit when a later persistence step fails,
// keeping the whole request all-or-nothing.
func reverseCredit(ctx context.Context, ledger UserLedger, userID string, payout float64) {
	if payout <= 0 {
		return
	}
	if _, err := ledger.ApplyDelta(ctx, userID, -payout); err != nil {
		log.Printf("[GAME] CRITICAL: reversal of %.2f for user %s failed: %v", payout, userID, err)
	}
}
