package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
)

// DiceEngine resolves single-player dice rounds: one request, instant
// result, even-money payout on a win.
type DiceEngine struct {
	deps  Deps
	nonce atomic.Int64
}

func NewDiceEngine(deps Deps) *DiceEngine {
	return &DiceEngine{deps: deps}
}

func (e *DiceEngine) GetType() GameType {
	return GameTypeDice
}

func (e *DiceEngine) Start(ctx context.Context) error {
	log.Println("[DICE] Engine started")
	return nil
}

func (e *DiceEngine) Stop() error {
	log.Println("[DICE] Engine stopped")
	return nil
}

func (e *DiceEngine) PlaceBet(ctx context.Context, req interface{}) (interface{}, error) {
	rollReq, ok := req.(DiceRollRequest)
	if !ok {
		return nil, fmt.Errorf("%w: invalid request type", ErrValidation)
	}

	if err := validateBetAmount(rollReq.Amount); err != nil {
		return nil, err
	}
	if rollReq.Target < DICE_MIN || rollReq.Target > DICE_MAX {
		return nil, fmt.Errorf("%w: target must be between %d and %d", ErrValidation, DICE_MIN, DICE_MAX)
	}
	// A target at the edge of the range can never win on that side.
	if rollReq.Over && rollReq.Target >= DICE_MAX {
		return nil, fmt.Errorf("%w: target too high for an over bet", ErrValidation)
	}
	if !rollReq.Over && rollReq.Target <= DICE_MIN {
		return nil, fmt.Errorf("%w: target too low for an under bet", ErrValidation)
	}
	if rollReq.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	balance, err := debitStake(ctx, e.deps.Ledger, rollReq.UserID, rollReq.Amount)
	if err != nil {
		return nil, err
	}

	round, err := NewRound(RoundParams{
		GameType:   GameTypeDice,
		Bet:        rollReq.Amount,
		ClientSeed: rollReq.ClientSeed,
	}, e.nonce.Add(1))
	if err != nil {
		refundStake(ctx, e.deps.Ledger, rollReq.UserID, rollReq.Amount)
		return nil, err
	}

	win := DiceWins(round.Outcome.DiceResult, rollReq.Target, rollReq.Over)
	payout := SettleDice(rollReq.Amount, win)
	if err := round.MarkSettled(payout); err != nil {
		refundStake(ctx, e.deps.Ledger, rollReq.UserID, rollReq.Amount)
		return nil, err
	}

	// Credit the win before anything is persisted as settled; later failures
	// unwind the credit together with the stake.
	if win {
		balance, err = e.deps.Ledger.ApplyDelta(ctx, rollReq.UserID, payout)
		if err != nil {
			refundStake(ctx, e.deps.Ledger, rollReq.UserID, rollReq.Amount)
			return nil, fmt.Errorf("failed to credit payout: %w", err)
		}
	}

	if err := e.deps.Rounds.SaveRound(ctx, round); err != nil {
		reverseCredit(ctx, e.deps.Ledger, rollReq.UserID, payout)
		refundStake(ctx, e.deps.Ledger, rollReq.UserID, rollReq.Amount)
		return nil, fmt.Errorf("round not recorded: %w", err)
	}

	if _, err := e.deps.TxLog.Append(ctx, rollReq.UserID, TxGameBet, -rollReq.Amount,
		DEFAULT_CURRENCY, TxStatusCompleted, fmt.Sprintf("Dice bet, round %s", round.ID)); err != nil {
		reverseCredit(ctx, e.deps.Ledger, rollReq.UserID, payout)
		refundStake(ctx, e.deps.Ledger, rollReq.UserID, rollReq.Amount)
		return nil, fmt.Errorf("transaction log unavailable: %w", err)
	}

	if win {
		if _, err := e.deps.TxLog.Append(ctx, rollReq.UserID, TxDiceWin, payout,
			DEFAULT_CURRENCY, TxStatusCompleted,
			fmt.Sprintf("Dice win, rolled %d, round %s", round.Outcome.DiceResult, round.ID)); err != nil {
			log.Printf("[DICE] transaction log append failed for round %s: %v", round.ID, err)
		}
	}

	disclosure, err := round.Disclosure()
	if err != nil {
		return nil, err
	}

	side := "under"
	if rollReq.Over {
		side = "over"
	}
	log.Printf("[DICE] User %s rolled %d (%s %d), win=%v, payout %.2f",
		rollReq.UserID, round.Outcome.DiceResult, side, rollReq.Target, win, payout)

	return DiceRollResponse{
		Success:    true,
		Message:    diceMessage(win, round.Outcome.DiceResult),
		RoundID:    round.ID,
		Result:     round.Outcome.DiceResult,
		Win:        win,
		Payout:     payout,
		Balance:    balance,
		Disclosure: disclosure,
	}, nil
}

func (e *DiceEngine) ProcessAction(ctx context.Context, action string, req interface{}) (interface{}, error) {
	return nil, errors.New("no actions available for dice")
}

func diceMessage(win bool, result int) string {
	if win {
		return fmt.Sprintf("Rolled %d, you win", result)
	}
	return fmt.Sprintf("Rolled %d, you lose", result)
}
