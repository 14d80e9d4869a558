package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
)

// CrashEngine resolves single-player crash rounds. The player submits the
// bet together with a cashout target; the round is generated, compared and
// settled in one request, and the full disclosure is returned immediately.
type CrashEngine struct {
	deps  Deps
	nonce atomic.Int64
}

func NewCrashEngine(deps Deps) *CrashEngine {
	return &CrashEngine{deps: deps}
}

func (e *CrashEngine) GetType() GameType {
	return GameTypeCrash
}

func (e *CrashEngine) Start(ctx context.Context) error {
	log.Println("[CRASH] Engine started")
	return nil
}

func (e *CrashEngine) Stop() error {
	log.Println("[CRASH] Engine stopped")
	return nil
}

func (e *CrashEngine) PlaceBet(ctx context.Context, req interface{}) (interface{}, error) {
	playReq, ok := req.(CrashPlayRequest)
	if !ok {
		return nil, fmt.Errorf("%w: invalid request type", ErrValidation)
	}

	if err := validateBetAmount(playReq.Amount); err != nil {
		return nil, err
	}
	if playReq.Cashout < MIN_CRASH_MULTIPLIER {
		return nil, fmt.Errorf("%w: cashout target must be at least %.2f", ErrValidation, MIN_CRASH_MULTIPLIER)
	}
	if playReq.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	balance, err := debitStake(ctx, e.deps.Ledger, playReq.UserID, playReq.Amount)
	if err != nil {
		return nil, err
	}

	round, err := NewRound(RoundParams{
		GameType:   GameTypeCrash,
		Bet:        playReq.Amount,
		ClientSeed: playReq.ClientSeed,
	}, e.nonce.Add(1))
	if err != nil {
		refundStake(ctx, e.deps.Ledger, playReq.UserID, playReq.Amount)
		return nil, err
	}

	payout := SettleCrash(playReq.Amount, playReq.Cashout, round.Outcome.CrashMultiplier)
	if err := round.MarkSettled(payout); err != nil {
		refundStake(ctx, e.deps.Ledger, playReq.UserID, playReq.Amount)
		return nil, err
	}

	// Credit the win before anything is persisted as settled. Any later
	// failure unwinds both the credit and the stake, so the request is
	// all-or-nothing from the ledger's point of view.
	win := payout > 0
	if win {
		balance, err = e.deps.Ledger.ApplyDelta(ctx, playReq.UserID, payout)
		if err != nil {
			refundStake(ctx, e.deps.Ledger, playReq.UserID, playReq.Amount)
			return nil, fmt.Errorf("failed to credit payout: %w", err)
		}
	}

	if err := e.deps.Rounds.SaveRound(ctx, round); err != nil {
		reverseCredit(ctx, e.deps.Ledger, playReq.UserID, payout)
		refundStake(ctx, e.deps.Ledger, playReq.UserID, playReq.Amount)
		return nil, fmt.Errorf("round not recorded: %w", err)
	}

	if _, err := e.deps.TxLog.Append(ctx, playReq.UserID, TxGameBet, -playReq.Amount,
		DEFAULT_CURRENCY, TxStatusCompleted, fmt.Sprintf("Crash bet, round %s", round.ID)); err != nil {
		reverseCredit(ctx, e.deps.Ledger, playReq.UserID, payout)
		refundStake(ctx, e.deps.Ledger, playReq.UserID, playReq.Amount)
		return nil, fmt.Errorf("transaction log unavailable: %w", err)
	}

	if win {
		if _, err := e.deps.TxLog.Append(ctx, playReq.UserID, TxCrashWin, payout,
			DEFAULT_CURRENCY, TxStatusCompleted,
			fmt.Sprintf("Crash win at %.2fx, round %s", playReq.Cashout, round.ID)); err != nil {
			log.Printf("[CRASH] transaction log append failed for round %s: %v", round.ID, err)
		}
	}

	disclosure, err := round.Disclosure()
	if err != nil {
		return nil, err
	}

	log.Printf("[CRASH] User %s bet %.2f, cashout %.2fx vs crash %.2fx, payout %.2f",
		playReq.UserID, playReq.Amount, playReq.Cashout, round.Outcome.CrashMultiplier, payout)

	return CrashPlayResponse{
		Success:         true,
		Message:         crashMessage(win, round.Outcome.CrashMultiplier),
		RoundID:         round.ID,
		CrashMultiplier: round.Outcome.CrashMultiplier,
		Win:             win,
		Payout:          payout,
		Balance:         balance,
		Disclosure:      disclosure,
	}, nil
}

func (e *CrashEngine) ProcessAction(ctx context.Context, action string, req interface{}) (interface{}, error) {
	return nil, errors.New("no actions available for crash")
}

func crashMessage(win bool, crash float64) string {
	if win {
		return fmt.Sprintf("Cashed out before the crash at %.2fx", crash)
	}
	return fmt.Sprintf("Crashed at %.2fx", crash)
}
