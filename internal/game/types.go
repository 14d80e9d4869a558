package game

// Request/response shapes shared by the REST handlers and the websocket
// layer.

type CrashPlayRequest struct {
	UserID     string  `json:"user_id"`
	Amount     float64 `json:"amount"`
	Cashout    float64 `json:"cashout"`
	ClientSeed string  `json:"client_seed,omitempty"`
}

type CrashPlayResponse struct {
	Success         bool       `json:"success"`
	Message         string     `json:"message"`
	RoundID         string     `json:"round_id,omitempty"`
	CrashMultiplier float64    `json:"crash_multiplier"`
	Win             bool       `json:"win"`
	Payout          float64    `json:"payout"`
	Balance         float64    `json:"balance"`
	Disclosure      Disclosure `json:"disclosure"`
}

type DiceRollRequest struct {
	UserID     string  `json:"user_id"`
	Amount     float64 `json:"amount"`
	Target     int     `json:"target"`
	Over       bool    `json:"over"`
	ClientSeed string  `json:"client_seed,omitempty"`
}

type DiceRollResponse struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	RoundID    string     `json:"round_id,omitempty"`
	Result     int        `json:"result"`
	Win        bool       `json:"win"`
	Payout     float64    `json:"payout"`
	Balance    float64    `json:"balance"`
	Disclosure Disclosure `json:"disclosure"`
}

type MinesBetRequest struct {
	UserID     string  `json:"user_id"`
	Amount     float64 `json:"amount"`
	MineCount  int     `json:"mine_count"`
	ClientSeed string  `json:"client_seed,omitempty"`
}

type MinesBetResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	GameID     string  `json:"game_id,omitempty"`
	Commitment string  `json:"commitment,omitempty"`
	GridSize   int     `json:"grid_size,omitempty"`
	Balance    float64 `json:"balance"`
}

type MinesRevealRequest struct {
	UserID string `json:"user_id"`
	GameID string `json:"game_id"`
	Cell   int    `json:"cell"`
}

type MinesRevealResponse struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message"`
	Cell          int         `json:"cell"`
	IsMine        bool        `json:"is_mine"`
	Multiplier    float64     `json:"multiplier"`
	CurrentPayout float64     `json:"current_payout"`
	GameStatus    string      `json:"game_status"`
	Payout        float64     `json:"payout,omitempty"`
	Balance       float64     `json:"balance,omitempty"`
	Disclosure    *Disclosure `json:"disclosure,omitempty"`
}

type MinesCashoutRequest struct {
	UserID string `json:"user_id"`
	GameID string `json:"game_id"`
}

type MinesCashoutResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Multiplier float64     `json:"multiplier"`
	Payout     float64     `json:"payout"`
	Balance    float64     `json:"balance"`
	Disclosure *Disclosure `json:"disclosure,omitempty"`
}

// PlayerAction is the single action a seated player submits while a room is
// playing. The populated fields depend on the room's game type; resubmitting
// replaces the previous action (last write wins).
type PlayerAction struct {
	Cashout float64 `json:"cashout,omitempty"` // crash
	Target  int     `json:"target,omitempty"`  // dice
	Over    bool    `json:"over,omitempty"`    // dice
	Reveals []int   `json:"reveals,omitempty"` // mines
}

type VerifyRequest struct {
	GameType   string  `json:"game_type"`
	ServerSeed string  `json:"server_seed"`
	ClientSeed string  `json:"client_seed"`
	Nonce      int64   `json:"nonce"`
	Digest     string  `json:"digest,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"` // crash claim
	Result     int     `json:"result,omitempty"`     // dice claim
	MineCount  int     `json:"mine_count,omitempty"` // mines claim
	GridSize   int     `json:"grid_size,omitempty"`
	MineCells  []int   `json:"mine_cells,omitempty"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
