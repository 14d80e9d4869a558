package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"minicasino/internal/game"
)

// In-memory collaborators, used by unit tests and by the server when it is
// started without Redis/Postgres (local development). Same contracts, same
// atomicity per user, no durability.

type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]float64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]float64)}
}

func (l *MemoryLedger) GetBalance(ctx context.Context, userID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *MemoryLedger) ApplyDelta(ctx context.Context, userID string, amount float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.balances[userID] + amount
	if next < 0 {
		return 0, fmt.Errorf("%w: delta %.2f overdraws balance", game.ErrInsufficientFunds, amount)
	}
	l.balances[userID] = next
	return next, nil
}

func (l *MemoryLedger) SetBalance(ctx context.Context, userID string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = amount
	return nil
}

type MemoryTxLog struct {
	mu      sync.Mutex
	entries []TxEntry
}

type TxEntry struct {
	ID          string
	UserID      string
	Type        string
	Amount      float64
	Currency    string
	Status      string
	Description string
	CreatedAt   time.Time
}

func NewMemoryTxLog() *MemoryTxLog {
	return &MemoryTxLog{}
}

func (t *MemoryTxLog) Append(ctx context.Context, userID, txType string, amount float64, currency, status, description string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := fmt.Sprintf("tx-%d", len(t.entries)+1)
	t.entries = append(t.entries, TxEntry{
		ID:          id,
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Currency:    currency,
		Status:      status,
		Description: description,
		CreatedAt:   time.Now(),
	})
	return id, nil
}

// Entries copies the log for inspection in tests.
func (t *MemoryTxLog) Entries() []TxEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TxEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

type MemoryRoundStore struct {
	mu     sync.Mutex
	rounds map[string]game.Round
}

func NewMemoryRoundStore() *MemoryRoundStore {
	return &MemoryRoundStore{rounds: make(map[string]game.Round)}
}

func (s *MemoryRoundStore) SaveRound(ctx context.Context, r *game.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[r.ID] = *r
	return nil
}

func (s *MemoryRoundStore) GetRound(ctx context.Context, id string) (*game.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[id]
	if !ok {
		return nil, fmt.Errorf("%w: round %s", game.ErrNotFound, id)
	}
	return &r, nil
}

type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string][]byte
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string][]byte)}
}

func (s *MemoryStateStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(value))
	copy(buf, value)
	s.states[key] = buf
	return nil
}

func (s *MemoryStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.states[key]
	if !ok {
		return nil, fmt.Errorf("%w: state %s", game.ErrNotFound, key)
	}
	return v, nil
}

func (s *MemoryStateStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}
