package game

import "fmt"

// Settlement maps a resolved outcome and a player's action to a monetary
// result. All functions here are pure; idempotency per (round, player) is
// enforced by the callers through Round.MarkSettled and seat guards.

// SettleCrash pays bet * cashout when the player cashed out at or before the
// crash point. The comparison is exactly `<=`: a cashout submitted at the
// crash multiplier still wins, one past it is a full loss, never a partial
// win.
func SettleCrash(bet, cashout, crashMultiplier float64) float64 {
	if cashout <= 0 {
		return 0
	}
	if cashout <= crashMultiplier {
		return bet * cashout
	}
	return 0
}

// SettleDice pays even money (bet * 2) on a win; the house edge lives in the
// over/under boundary skew, not in the payout.
func SettleDice(bet float64, win bool) float64 {
	if win {
		return bet * 2
	}
	return 0
}

// MinesMultiplier grows with each safely revealed cell and shrinks with mine
// density: 1 + revealed*0.1*(1 - mineCount/gridSize).
func MinesMultiplier(revealed, mineCount, gridSize int) float64 {
	if revealed <= 0 || gridSize <= 0 {
		return 1.0
	}
	return 1 + float64(revealed)*0.1*(1-float64(mineCount)/float64(gridSize))
}

// SettleMines computes the mines payout. Hitting a mine zeroes the payout;
// otherwise the multiplier locks in at the current reveal count. Revealing
// every safe cell settles as a win at that multiplier.
func SettleMines(bet float64, revealed, mineCount, gridSize int, hitMine bool) float64 {
	if hitMine {
		return 0
	}
	return bet * MinesMultiplier(revealed, mineCount, gridSize)
}

// SettleAction applies the right settlement for a round's game type against
// a player action. Used by the room coordinator where actions arrive as a
// tagged union.
func SettleAction(r *Round, a PlayerAction) (float64, error) {
	switch r.GameType {
	case GameTypeCrash:
		return SettleCrash(r.Bet, a.Cashout, r.Outcome.CrashMultiplier), nil
	case GameTypeDice:
		win := DiceWins(r.Outcome.DiceResult, a.Target, a.Over)
		return SettleDice(r.Bet, win), nil
	case GameTypeMines:
		revealed, hitMine := replayReveals(r.Outcome, a.Reveals)
		return SettleMines(r.Bet, revealed, r.Outcome.MineCount, r.Outcome.GridSize, hitMine), nil
	default:
		return 0, fmt.Errorf("%w: unknown game type %q", ErrValidation, r.GameType)
	}
}

// replayReveals walks a submitted reveal sequence against the fixed layout,
// counting distinct safe cells up to the first mine hit.
func replayReveals(o Outcome, reveals []int) (revealed int, hitMine bool) {
	mines := make(map[int]bool, len(o.MineCells))
	for _, c := range o.MineCells {
		mines[c] = true
	}
	seen := make(map[int]bool, len(reveals))
	for _, cell := range reveals {
		if cell < 0 || cell >= o.GridSize || seen[cell] {
			continue
		}
		seen[cell] = true
		if mines[cell] {
			return revealed, true
		}
		revealed++
	}
	return revealed, false
}
