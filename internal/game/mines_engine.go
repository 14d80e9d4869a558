package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

const (
	MINES_GRID_SIZE = 25 // 5x5 grid
	MINES_MIN_COUNT = 1
	MINES_MAX_COUNT = MINES_GRID_SIZE - 1

	MINES_STATE_PREFIX = "mines:game:"
	MINES_STATE_TTL    = 1 * time.Hour
)

const (
	minesActive    = "active"
	minesBusted    = "busted"
	minesCashedOut = "cashed_out"
	minesCleared   = "cleared"
)

// minesGameState is the in-flight record kept in the state store between
// reveal requests. Unlike the API types it serializes the server seed and
// the layout, since the store is never exposed to clients.
type minesGameState struct {
	GameID     string    `json:"game_id"`
	RoundID    string    `json:"round_id"`
	UserID     string    `json:"user_id"`
	Bet        float64   `json:"bet"`
	MineCount  int       `json:"mine_count"`
	GridSize   int       `json:"grid_size"`
	ServerSeed string    `json:"server_seed"`
	Commitment string    `json:"commitment"`
	ClientSeed string    `json:"client_seed"`
	Nonce      int64     `json:"nonce"`
	Digest     string    `json:"digest"`
	MineCells  []int     `json:"mine_cells"`
	Revealed   []int     `json:"revealed"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// MinesEngine runs single-player mines games. The full layout is fixed and
// persisted when the bet is placed; reveals only read it.
type MinesEngine struct {
	deps  Deps
	nonce atomic.Int64
}

func NewMinesEngine(deps Deps) *MinesEngine {
	return &MinesEngine{deps: deps}
}

func (e *MinesEngine) GetType() GameType {
	return GameTypeMines
}

func (e *MinesEngine) Start(ctx context.Context) error {
	log.Println("[MINES] Engine started")
	return nil
}

func (e *MinesEngine) Stop() error {
	log.Println("[MINES] Engine stopped")
	return nil
}

func (e *MinesEngine) PlaceBet(ctx context.Context, req interface{}) (interface{}, error) {
	betReq, ok := req.(MinesBetRequest)
	if !ok {
		return nil, fmt.Errorf("%w: invalid request type", ErrValidation)
	}

	if err := validateBetAmount(betReq.Amount); err != nil {
		return nil, err
	}
	if betReq.MineCount < MINES_MIN_COUNT || betReq.MineCount > MINES_MAX_COUNT {
		return nil, fmt.Errorf("%w: mine count must be between %d and %d", ErrValidation, MINES_MIN_COUNT, MINES_MAX_COUNT)
	}
	if betReq.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	balance, err := debitStake(ctx, e.deps.Ledger, betReq.UserID, betReq.Amount)
	if err != nil {
		return nil, err
	}

	round, err := NewRound(RoundParams{
		GameType:   GameTypeMines,
		Bet:        betReq.Amount,
		ClientSeed: betReq.ClientSeed,
		MineCount:  betReq.MineCount,
		GridSize:   MINES_GRID_SIZE,
	}, e.nonce.Add(1))
	if err != nil {
		refundStake(ctx, e.deps.Ledger, betReq.UserID, betReq.Amount)
		return nil, err
	}

	state := minesGameState{
		GameID:     round.ID,
		RoundID:    round.ID,
		UserID:     betReq.UserID,
		Bet:        betReq.Amount,
		MineCount:  betReq.MineCount,
		GridSize:   MINES_GRID_SIZE,
		ServerSeed: round.ServerSeed,
		Commitment: round.Commitment,
		ClientSeed: round.ClientSeed,
		Nonce:      round.Nonce,
		Digest:     round.ResultDigest,
		MineCells:  round.Outcome.MineCells,
		Revealed:   []int{},
		Status:     minesActive,
		CreatedAt:  round.CreatedAt,
	}
	if err := e.saveState(ctx, &state); err != nil {
		refundStake(ctx, e.deps.Ledger, betReq.UserID, betReq.Amount)
		return nil, fmt.Errorf("game state not stored: %w", err)
	}

	if _, err := e.deps.TxLog.Append(ctx, betReq.UserID, TxGameBet, -betReq.Amount,
		DEFAULT_CURRENCY, TxStatusCompleted, fmt.Sprintf("Mines bet, round %s", round.ID)); err != nil {
		e.deps.States.Delete(ctx, MINES_STATE_PREFIX+state.GameID)
		refundStake(ctx, e.deps.Ledger, betReq.UserID, betReq.Amount)
		return nil, fmt.Errorf("transaction log unavailable: %w", err)
	}

	log.Printf("[MINES] Game %s started for user %s with %d mines", state.GameID, betReq.UserID, betReq.MineCount)

	return MinesBetResponse{
		Success:    true,
		Message:    "Game started",
		GameID:     state.GameID,
		Commitment: state.Commitment,
		GridSize:   MINES_GRID_SIZE,
		Balance:    balance,
	}, nil
}

func (e *MinesEngine) ProcessAction(ctx context.Context, action string, req interface{}) (interface{}, error) {
	switch action {
	case "reveal":
		return e.handleReveal(ctx, req)
	case "cashout":
		return e.handleCashout(ctx, req)
	default:
		return nil, errors.New("unknown action")
	}
}

func (e *MinesEngine) handleReveal(ctx context.Context, req interface{}) (interface{}, error) {
	revealReq, ok := req.(MinesRevealRequest)
	if !ok {
		return nil, fmt.Errorf("%w: invalid request type", ErrValidation)
	}

	state, err := e.loadState(ctx, revealReq.GameID)
	if err != nil {
		return nil, err
	}
	if state.UserID != revealReq.UserID {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, revealReq.GameID)
	}
	if state.Status != minesActive {
		return nil, fmt.Errorf("%w: game is %s", ErrInvalidState, state.Status)
	}
	if revealReq.Cell < 0 || revealReq.Cell >= state.GridSize {
		return nil, fmt.Errorf("%w: cell %d outside grid", ErrValidation, revealReq.Cell)
	}
	for _, c := range state.Revealed {
		if c == revealReq.Cell {
			return nil, fmt.Errorf("%w: cell %d already revealed", ErrValidation, revealReq.Cell)
		}
	}

	for _, mine := range state.MineCells {
		if mine == revealReq.Cell {
			return e.settleBust(ctx, state, revealReq.Cell)
		}
	}

	state.Revealed = append(state.Revealed, revealReq.Cell)
	revealed := len(state.Revealed)
	multiplier := MinesMultiplier(revealed, state.MineCount, state.GridSize)

	// All safe cells found: the round auto-settles as a win.
	if revealed == state.GridSize-state.MineCount {
		return e.settleWin(ctx, state, minesCleared, revealReq.Cell)
	}

	if err := e.saveState(ctx, state); err != nil {
		return nil, fmt.Errorf("game state not stored: %w", err)
	}

	log.Printf("[MINES] User %s revealed safe cell %d in game %s (%.2fx)",
		state.UserID, revealReq.Cell, state.GameID, multiplier)

	return MinesRevealResponse{
		Success:       true,
		Message:       "Safe cell",
		Cell:          revealReq.Cell,
		IsMine:        false,
		Multiplier:    multiplier,
		CurrentPayout: state.Bet * multiplier,
		GameStatus:    minesActive,
	}, nil
}

func (e *MinesEngine) handleCashout(ctx context.Context, req interface{}) (interface{}, error) {
	cashoutReq, ok := req.(MinesCashoutRequest)
	if !ok {
		return nil, fmt.Errorf("%w: invalid request type", ErrValidation)
	}

	state, err := e.loadState(ctx, cashoutReq.GameID)
	if err != nil {
		return nil, err
	}
	if state.UserID != cashoutReq.UserID {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, cashoutReq.GameID)
	}
	if state.Status != minesActive {
		return nil, fmt.Errorf("%w: game is %s", ErrInvalidState, state.Status)
	}
	if len(state.Revealed) == 0 {
		return nil, fmt.Errorf("%w: reveal at least one cell before cashing out", ErrValidation)
	}

	resp, err := e.settleWin(ctx, state, minesCashedOut, -1)
	if err != nil {
		return nil, err
	}
	revealResp := resp.(MinesRevealResponse)

	return MinesCashoutResponse{
		Success:    true,
		Message:    "Cashed out",
		Multiplier: revealResp.Multiplier,
		Payout:     revealResp.Payout,
		Balance:    revealResp.Balance,
		Disclosure: revealResp.Disclosure,
	}, nil
}

// settleWin locks in the multiplier at the current reveal count, credits the
// payout once and reveals the seeds.
func (e *MinesEngine) settleWin(ctx context.Context, state *minesGameState, status string, lastCell int) (interface{}, error) {
	multiplier := MinesMultiplier(len(state.Revealed), state.MineCount, state.GridSize)
	payout := SettleMines(state.Bet, len(state.Revealed), state.MineCount, state.GridSize, false)

	round := state.round()
	if err := round.MarkSettled(payout); err != nil {
		return nil, err
	}
	if err := e.deps.Rounds.SaveRound(ctx, round); err != nil {
		return nil, fmt.Errorf("round not recorded: %w", err)
	}

	// Credit before the state turns terminal. A failed credit leaves the game
	// active in the store so the player can cash out again, instead of closing
	// an unpaid game for good.
	balance, err := e.deps.Ledger.ApplyDelta(ctx, state.UserID, payout)
	if err != nil {
		return nil, fmt.Errorf("failed to credit payout: %w", err)
	}

	state.Status = status
	if err := e.saveState(ctx, state); err != nil {
		reverseCredit(ctx, e.deps.Ledger, state.UserID, payout)
		return nil, fmt.Errorf("game state not stored: %w", err)
	}
	if _, err := e.deps.TxLog.Append(ctx, state.UserID, TxMinesWin, payout,
		DEFAULT_CURRENCY, TxStatusCompleted,
		fmt.Sprintf("Mines win at %.2fx, round %s", multiplier, round.ID)); err != nil {
		log.Printf("[MINES] transaction log append failed for round %s: %v", round.ID, err)
	}

	disclosure, err := round.Disclosure()
	if err != nil {
		return nil, err
	}

	log.Printf("[MINES] User %s %s game %s for %.2f", state.UserID, status, state.GameID, payout)

	return MinesRevealResponse{
		Success:       true,
		Message:       "You win",
		Cell:          lastCell,
		IsMine:        false,
		Multiplier:    multiplier,
		CurrentPayout: payout,
		GameStatus:    status,
		Payout:        payout,
		Balance:       balance,
		Disclosure:    &disclosure,
	}, nil
}

// settleBust ends the game with a zero payout and reveals the seeds so the
// player can verify the layout was fixed before their first reveal.
func (e *MinesEngine) settleBust(ctx context.Context, state *minesGameState, cell int) (interface{}, error) {
	state.Status = minesBusted
	round := state.round()
	if err := round.MarkSettled(0); err != nil {
		return nil, err
	}
	if err := e.deps.Rounds.SaveRound(ctx, round); err != nil {
		return nil, fmt.Errorf("round not recorded: %w", err)
	}
	if err := e.saveState(ctx, state); err != nil {
		return nil, fmt.Errorf("game state not stored: %w", err)
	}

	disclosure, err := round.Disclosure()
	if err != nil {
		return nil, err
	}

	log.Printf("[MINES] User %s hit a mine at cell %d in game %s", state.UserID, cell, state.GameID)

	return MinesRevealResponse{
		Success:       true,
		Message:       "You hit a mine",
		Cell:          cell,
		IsMine:        true,
		Multiplier:    0,
		CurrentPayout: 0,
		GameStatus:    minesBusted,
		Disclosure:    &disclosure,
	}, nil
}

// round rebuilds the persisted Round from the in-flight state for
// settlement.
func (s *minesGameState) round() *Round {
	return &Round{
		ID:           s.RoundID,
		GameType:     GameTypeMines,
		ServerSeed:   s.ServerSeed,
		Commitment:   s.Commitment,
		ClientSeed:   s.ClientSeed,
		Nonce:        s.Nonce,
		ResultDigest: s.Digest,
		Outcome:      Outcome{MineCells: s.MineCells, MineCount: s.MineCount, GridSize: s.GridSize},
		Status:       RoundResolved,
		Bet:          s.Bet,
		CreatedAt:    s.CreatedAt,
	}
}

func (e *MinesEngine) saveState(ctx context.Context, state *minesGameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return e.deps.States.Put(ctx, MINES_STATE_PREFIX+state.GameID, data, MINES_STATE_TTL)
}

func (e *MinesEngine) loadState(ctx context.Context, gameID string) (*minesGameState, error) {
	data, err := e.deps.States.Get(ctx, MINES_STATE_PREFIX+gameID)
	if err != nil {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	var state minesGameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("corrupt game state for %s: %v", gameID, err)
	}
	return &state, nil
}
