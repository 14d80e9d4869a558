package game

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

func newRoomID() string {
	return uuid.New().String()
}

const (
	MAX_ROOM_PLAYERS       = 10
	DEFAULT_ROOM_RETENTION = 1 * time.Hour
	ROOM_DEFAULT_MINES     = 3
)

type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomPlaying   RoomStatus = "playing"
	RoomFinished  RoomStatus = "finished"
	RoomCancelled RoomStatus = "cancelled"
)

// Seat is one player's membership in a room, in join order. Settled marks a
// seat whose payout (possibly zero) has been applied, so a retried finish
// never pays the same seat twice.
type Seat struct {
	UserID        string  `json:"user_id"`
	BalanceAtJoin float64 `json:"balance_at_join"`
	Ready         bool    `json:"ready"`
	Staked        bool    `json:"staked"`
	Settled       bool    `json:"settled"`
	Payout        float64 `json:"payout"`
}

// Room wraps exactly one shared round for several players. All mutation
// happens under the room's own mutex; one room never blocks another.
type Room struct {
	mu sync.Mutex

	ID         string
	GameType   GameType
	Bet        float64
	MaxPlayers int
	Status     RoomStatus
	CreatedBy  string
	MineCount  int

	Players []*Seat
	Actions map[string]PlayerAction
	Round   *Round

	CreatedAt  time.Time
	FinishedAt time.Time
}

// RoomView is the client-safe snapshot of a room. The round's secrets stay
// hidden until the room finishes.
type RoomView struct {
	ID         string                  `json:"id"`
	GameType   GameType                `json:"game_type"`
	Bet        float64                 `json:"bet"`
	MaxPlayers int                     `json:"max_players"`
	Status     RoomStatus              `json:"status"`
	CreatedBy  string                  `json:"created_by"`
	Players    []Seat                  `json:"players"`
	Actions    map[string]PlayerAction `json:"actions,omitempty"`
	Commitment string                  `json:"commitment,omitempty"`
	Disclosure *Disclosure             `json:"disclosure,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

// Coordinator owns the process-wide room map. The registry lock only guards
// map lookups; room state transitions serialize on the per-room mutex, so
// two concurrent joins or starts on one room cannot both pass their guards.
type Coordinator struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	deps      Deps
	nonce     atomic.Int64
	retention time.Duration
}

func NewCoordinator(deps Deps, retention time.Duration) *Coordinator {
	if retention <= 0 {
		retention = DEFAULT_ROOM_RETENTION
	}
	return &Coordinator{
		rooms:     make(map[string]*Room),
		deps:      deps,
		retention: retention,
	}
}

type CreateRoomRequest struct {
	GameType   string  `json:"game_type"`
	Bet        float64 `json:"bet"`
	MaxPlayers int     `json:"max_players"`
	UserID     string  `json:"user_id"`
	MineCount  int     `json:"mine_count,omitempty"`
}

// Create opens a room in Waiting with the creator as sole seated player.
func (c *Coordinator) Create(ctx context.Context, req CreateRoomRequest) (*RoomView, error) {
	gameType, err := ParseGameType(req.GameType)
	if err != nil {
		return nil, err
	}
	if req.Bet < 0 {
		return nil, fmt.Errorf("%w: negative bet %.2f", ErrValidation, req.Bet)
	}
	if req.MaxPlayers < 1 || req.MaxPlayers > MAX_ROOM_PLAYERS {
		return nil, fmt.Errorf("%w: max players must be between 1 and %d", ErrValidation, MAX_ROOM_PLAYERS)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	mineCount := req.MineCount
	if gameType == GameTypeMines {
		if mineCount == 0 {
			mineCount = ROOM_DEFAULT_MINES
		}
		if mineCount < MINES_MIN_COUNT || mineCount > MINES_MAX_COUNT {
			return nil, fmt.Errorf("%w: mine count must be between %d and %d", ErrValidation, MINES_MIN_COUNT, MINES_MAX_COUNT)
		}
	}

	balance, err := c.deps.Ledger.GetBalance(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("ledger read failed: %w", err)
	}
	if req.Bet > 0 && balance < req.Bet {
		return nil, fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientFunds, balance, req.Bet)
	}

	room := &Room{
		ID:         newRoomID(),
		GameType:   gameType,
		Bet:        req.Bet,
		MaxPlayers: req.MaxPlayers,
		Status:     RoomWaiting,
		CreatedBy:  req.UserID,
		MineCount:  mineCount,
		Players:    []*Seat{{UserID: req.UserID, BalanceAtJoin: balance, Ready: true}},
		Actions:    make(map[string]PlayerAction),
		CreatedAt:  time.Now(),
	}

	c.mu.Lock()
	c.rooms[room.ID] = room
	c.mu.Unlock()

	log.Printf("[ROOM] Room %s created by %s (%s, bet %.2f, max %d)",
		room.ID, req.UserID, gameType, req.Bet, req.MaxPlayers)
	c.broadcast("room_created", room.snapshot())

	view := room.snapshot()
	return &view, nil
}

// Join seats a user in a Waiting room. Guards are checked in order so the
// caller gets the specific rejection reason.
func (c *Coordinator) Join(ctx context.Context, roomID, userID string) (*RoomView, error) {
	room, err := c.get(roomID)
	if err != nil {
		return nil, err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Status != RoomWaiting {
		return nil, fmt.Errorf("%w: room %s is not waiting", ErrInvalidState, roomID)
	}
	if len(room.Players) >= room.MaxPlayers {
		return nil, fmt.Errorf("%w: room %s is full", ErrInvalidState, roomID)
	}
	if room.seat(userID) != nil {
		return nil, fmt.Errorf("%w: already joined room %s", ErrValidation, roomID)
	}

	balance, err := c.deps.Ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger read failed: %w", err)
	}
	if room.Bet > 0 && balance < room.Bet {
		return nil, fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientFunds, balance, room.Bet)
	}

	room.Players = append(room.Players, &Seat{UserID: userID, BalanceAtJoin: balance, Ready: true})

	log.Printf("[ROOM] User %s joined room %s (%d/%d)", userID, roomID, len(room.Players), room.MaxPlayers)
	c.broadcast("player_joined", room.snapshot())

	view := room.snapshot()
	return &view, nil
}

// Leave removes a seat from a Waiting room. An emptied room whose creator
// walked away is cancelled and reclaimed.
func (c *Coordinator) Leave(ctx context.Context, roomID, userID string) error {
	room, err := c.get(roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Status != RoomWaiting {
		return fmt.Errorf("%w: room %s is not waiting", ErrInvalidState, roomID)
	}

	idx := -1
	for i, s := range room.Players {
		if s.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: user %s has no seat in room %s", ErrNotFound, userID, roomID)
	}
	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)

	if len(room.Players) == 0 && userID == room.CreatedBy {
		room.Status = RoomCancelled
		c.remove(roomID)
		log.Printf("[ROOM] Room %s cancelled, creator left", roomID)
		c.broadcast("room_cancelled", room.snapshot())
		return nil
	}

	log.Printf("[ROOM] User %s left room %s (%d/%d)", userID, roomID, len(room.Players), room.MaxPlayers)
	c.broadcast("player_left", room.snapshot())
	return nil
}

// Start moves a room to Playing: deducts each seated player's stake and
// generates the single shared round. Players whose balance no longer covers
// the bet are skipped, not blocking the rest; only staked seats settle at
// finish. Only the creator may start.
func (c *Coordinator) Start(ctx context.Context, roomID, requesterID string) (*RoomView, error) {
	room, err := c.get(roomID)
	if err != nil {
		return nil, err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if requesterID != room.CreatedBy {
		return nil, fmt.Errorf("%w: only the creator may start room %s", ErrValidation, roomID)
	}
	if room.Status != RoomWaiting {
		return nil, fmt.Errorf("%w: room %s is not waiting", ErrInvalidState, roomID)
	}
	if len(room.Players) == 0 {
		return nil, fmt.Errorf("%w: room %s has no seated players", ErrInvalidState, roomID)
	}

	staked := make([]*Seat, 0, len(room.Players))
	for _, seat := range room.Players {
		if room.Bet == 0 {
			seat.Staked = true
			staked = append(staked, seat)
			continue
		}
		if _, err := debitStake(ctx, c.deps.Ledger, seat.UserID, room.Bet); err != nil {
			log.Printf("[ROOM] Skipping player %s in room %s: %v", seat.UserID, roomID, err)
			continue
		}
		seat.Staked = true
		staked = append(staked, seat)
		if _, err := c.deps.TxLog.Append(ctx, seat.UserID, TxGameBet, -room.Bet,
			DEFAULT_CURRENCY, TxStatusCompleted, fmt.Sprintf("Room %s stake", roomID)); err != nil {
			log.Printf("[ROOM] transaction log append failed for room %s: %v", roomID, err)
		}
	}

	round, err := NewRound(RoundParams{
		GameType:  room.GameType,
		Bet:       room.Bet,
		MineCount: room.MineCount,
		GridSize:  MINES_GRID_SIZE,
	}, c.nonce.Add(1))
	if err != nil {
		for _, seat := range staked {
			if room.Bet > 0 {
				refundStake(ctx, c.deps.Ledger, seat.UserID, room.Bet)
			}
			seat.Staked = false
		}
		return nil, err
	}

	room.Round = round
	room.Status = RoomPlaying

	log.Printf("[ROOM] Room %s started with %d/%d staked players", roomID, len(staked), len(room.Players))
	c.broadcast("room_started", room.snapshot())

	view := room.snapshot()
	return &view, nil
}

// SubmitAction records a seated player's single live action while the room
// plays. Resubmitting overwrites the previous action: last write wins.
func (c *Coordinator) SubmitAction(ctx context.Context, roomID, userID string, action PlayerAction) error {
	room, err := c.get(roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Status != RoomPlaying {
		return fmt.Errorf("%w: room %s is not playing", ErrInvalidState, roomID)
	}
	if room.seat(userID) == nil {
		return fmt.Errorf("%w: user %s has no seat in room %s", ErrNotFound, userID, roomID)
	}

	room.Actions[userID] = action
	log.Printf("[ROOM] User %s submitted action in room %s", userID, roomID)
	c.broadcast("action_submitted", map[string]string{
		"room_id": roomID,
		"user_id": userID,
	})
	return nil
}

// Finish settles the room once: each staked seat's last action runs through
// the settlement calculator, payouts apply exactly once, and the room is
// scheduled for removal after the retention window so late result queries
// still resolve. The creator finishes explicitly; an empty requester id is
// the external timeout policy.
func (c *Coordinator) Finish(ctx context.Context, roomID, requesterID string) (*RoomView, error) {
	room, err := c.get(roomID)
	if err != nil {
		return nil, err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if requesterID != "" && requesterID != room.CreatedBy {
		return nil, fmt.Errorf("%w: only the creator may finish room %s", ErrValidation, roomID)
	}
	if room.Status != RoomPlaying {
		return nil, fmt.Errorf("%w: room %s is not playing", ErrInvalidState, roomID)
	}

	// Apply each seat's payout exactly once. The room only transitions after
	// every staked seat settled; on a credit failure the room stays Playing
	// and a retried finish picks up the unsettled seats only.
	unpaid := 0
	for _, seat := range room.Players {
		if !seat.Staked || seat.Settled {
			continue
		}
		action, submitted := room.Actions[seat.UserID]
		if !submitted {
			// No action means no payout; the stake stays deducted.
			seat.Settled = true
			continue
		}
		payout, err := SettleAction(room.Round, action)
		if err != nil {
			return nil, err
		}
		if payout <= 0 {
			seat.Settled = true
			continue
		}
		if _, err := c.deps.Ledger.ApplyDelta(ctx, seat.UserID, payout); err != nil {
			log.Printf("[ROOM] payout of %.2f to %s in room %s failed: %v",
				payout, seat.UserID, roomID, err)
			unpaid++
			continue
		}
		seat.Settled = true
		seat.Payout = payout
		if _, err := c.deps.TxLog.Append(ctx, seat.UserID, TxRoomWin, payout,
			DEFAULT_CURRENCY, TxStatusCompleted, fmt.Sprintf("Room %s win", roomID)); err != nil {
			log.Printf("[ROOM] transaction log append failed for room %s: %v", roomID, err)
		}
	}
	if unpaid > 0 {
		return nil, fmt.Errorf("room %s has %d unpaid seats, finish again to retry", roomID, unpaid)
	}

	total := 0.0
	for _, seat := range room.Players {
		total += seat.Payout
	}

	if err := room.Round.MarkSettled(total); err != nil {
		return nil, err
	}
	if err := c.deps.Rounds.SaveRound(ctx, room.Round); err != nil {
		log.Printf("[ROOM] round %s not recorded: %v", room.Round.ID, err)
	}

	room.Status = RoomFinished
	room.FinishedAt = time.Now()

	log.Printf("[ROOM] Room %s finished, %.2f paid out", roomID, total)
	c.broadcast("room_finished", room.snapshot())

	time.AfterFunc(c.retention, func() {
		c.remove(roomID)
		log.Printf("[ROOM] Room %s reclaimed after retention window", roomID)
	})

	view := room.snapshot()
	return &view, nil
}

// Get returns a client-safe snapshot of one room.
func (c *Coordinator) Get(roomID string) (*RoomView, error) {
	room, err := c.get(roomID)
	if err != nil {
		return nil, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	view := room.snapshot()
	return &view, nil
}

// List snapshots every live room.
func (c *Coordinator) List() []RoomView {
	c.mu.RLock()
	rooms := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.RUnlock()

	views := make([]RoomView, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		views = append(views, r.snapshot())
		r.mu.Unlock()
	}
	return views
}

func (c *Coordinator) get(roomID string) (*Room, error) {
	c.mu.RLock()
	room, ok := c.rooms[roomID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	return room, nil
}

func (c *Coordinator) remove(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

func (c *Coordinator) broadcast(event string, data interface{}) {
	if c.deps.Hub == nil {
		return
	}
	c.deps.Hub.Broadcast(WSMessage{Type: event, Data: data})
}

// seat returns the user's seat, or nil. Callers hold the room mutex.
func (r *Room) seat(userID string) *Seat {
	for _, s := range r.Players {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// snapshot copies the room into its client view. Callers hold the room
// mutex. The disclosure appears only once the room is finished.
func (r *Room) snapshot() RoomView {
	view := RoomView{
		ID:         r.ID,
		GameType:   r.GameType,
		Bet:        r.Bet,
		MaxPlayers: r.MaxPlayers,
		Status:     r.Status,
		CreatedBy:  r.CreatedBy,
		Players:    make([]Seat, len(r.Players)),
		CreatedAt:  r.CreatedAt,
	}
	for i, s := range r.Players {
		view.Players[i] = *s
	}
	if r.Round != nil {
		view.Commitment = r.Round.Commitment
	}
	if r.Status == RoomFinished && r.Round != nil {
		if d, err := r.Round.Disclosure(); err == nil {
			view.Disclosure = &d
			view.Actions = r.Actions
		}
	}
	return view
}
