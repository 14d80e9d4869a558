package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type GameType string

const (
	GameTypeCrash GameType = "crash"
	GameTypeDice  GameType = "dice"
	GameTypeMines GameType = "mines"
)

func ParseGameType(s string) (GameType, error) {
	switch GameType(s) {
	case GameTypeCrash, GameTypeDice, GameTypeMines:
		return GameType(s), nil
	default:
		return "", fmt.Errorf("%w: unknown game type %q", ErrValidation, s)
	}
}

type RoundStatus string

const (
	RoundPending  RoundStatus = "pending"
	RoundResolved RoundStatus = "resolved"
	RoundSettled  RoundStatus = "settled"
)

// Outcome is the game-specific value derived from a round digest. Exactly
// one field group is populated depending on the game type.
type Outcome struct {
	CrashMultiplier float64 `json:"crash_multiplier,omitempty"`
	DiceResult      int     `json:"dice_result"`
	MineCells       []int   `json:"mine_cells,omitempty"`
	MineCount       int     `json:"mine_count,omitempty"`
	GridSize        int     `json:"grid_size,omitempty"`
}

// Round is one resolved or in-progress game instance. The digest and the
// outcome are pure functions of (serverSeed, clientSeed, nonce); recomputing
// with the same triple always yields the same values. After settlement a
// round is never mutated except to attach the settlement numbers.
type Round struct {
	ID           string      `json:"id"`
	GameType     GameType    `json:"game_type"`
	ServerSeed   string      `json:"-"` // revealed only through Disclosure after resolution
	Commitment   string      `json:"commitment"`
	ClientSeed   string      `json:"client_seed"`
	Nonce        int64       `json:"nonce"`
	ResultDigest string      `json:"result_digest"`
	Outcome      Outcome     `json:"-"` // hidden until the round ends (mines layout in particular)
	Status       RoundStatus `json:"status"`
	Bet          float64     `json:"bet"`
	Payout       float64     `json:"payout"`
	CreatedAt    time.Time   `json:"created_at"`
	SettledAt    time.Time   `json:"settled_at,omitempty"`
}

// Disclosure is the complete provably-fair audit record for a resolved
// round. It is always returned whole, never partially.
type Disclosure struct {
	RoundID      string  `json:"round_id"`
	ServerSeed   string  `json:"server_seed"`
	ClientSeed   string  `json:"client_seed"`
	Nonce        int64   `json:"nonce"`
	ResultDigest string  `json:"result_digest"`
	Outcome      Outcome `json:"outcome"`
}

// RoundParams carries the per-game inputs needed to resolve a round at
// creation time. ClientSeed may be empty, in which case one is generated.
type RoundParams struct {
	GameType   GameType
	Bet        float64
	ClientSeed string
	MineCount  int // mines only
	GridSize   int // mines only
}

// NewRound draws fresh seeds, computes the digest and resolves the outcome
// immediately. Even for reveal-driven games the full result (the mine
// layout) is fixed here, never invented lazily.
func NewRound(p RoundParams, nonce int64) (*Round, error) {
	if p.Bet < 0 {
		return nil, fmt.Errorf("%w: negative bet %.2f", ErrValidation, p.Bet)
	}

	serverSeed := GenerateServerSeed()
	clientSeed := p.ClientSeed
	if clientSeed == "" {
		clientSeed = GenerateClientSeed()
	}
	digest := Digest(serverSeed, clientSeed, nonce)

	r := &Round{
		ID:           uuid.New().String(),
		GameType:     p.GameType,
		ServerSeed:   serverSeed,
		Commitment:   HashCommitment(serverSeed),
		ClientSeed:   clientSeed,
		Nonce:        nonce,
		ResultDigest: digest,
		Status:       RoundPending,
		Bet:          p.Bet,
		CreatedAt:    time.Now(),
	}

	switch p.GameType {
	case GameTypeCrash:
		m, err := CrashMultiplier(digest)
		if err != nil {
			return nil, err
		}
		r.Outcome = Outcome{CrashMultiplier: m}
	case GameTypeDice:
		result, err := DiceResult(digest)
		if err != nil {
			return nil, err
		}
		r.Outcome = Outcome{DiceResult: result}
	case GameTypeMines:
		cells, err := MinesLayout(digest, p.MineCount, p.GridSize)
		if err != nil {
			return nil, err
		}
		r.Outcome = Outcome{MineCells: cells, MineCount: p.MineCount, GridSize: p.GridSize}
	default:
		return nil, fmt.Errorf("%w: unknown game type %q", ErrValidation, p.GameType)
	}

	r.Status = RoundResolved
	return r, nil
}

// Disclosure returns the audit tuple. Only resolved or settled rounds may
// reveal the server seed.
func (r *Round) Disclosure() (Disclosure, error) {
	if r.Status == RoundPending {
		return Disclosure{}, fmt.Errorf("%w: round %s not resolved yet", ErrInvalidState, r.ID)
	}
	return Disclosure{
		RoundID:      r.ID,
		ServerSeed:   r.ServerSeed,
		ClientSeed:   r.ClientSeed,
		Nonce:        r.Nonce,
		ResultDigest: r.ResultDigest,
		Outcome:      r.Outcome,
	}, nil
}

// MarkSettled attaches the payout and moves the round to its terminal
// status. Settling twice is rejected; that guard is the primary defense
// against double payouts.
func (r *Round) MarkSettled(payout float64) error {
	if r.Status == RoundSettled {
		return fmt.Errorf("%w: round %s already settled", ErrInvalidState, r.ID)
	}
	if r.Status != RoundResolved {
		return fmt.Errorf("%w: round %s not resolved", ErrInvalidState, r.ID)
	}
	r.Payout = payout
	r.Status = RoundSettled
	r.SettledAt = time.Now()
	return nil
}
