package ledger

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// MemoryStore is an in-process Store for tests and local tooling
type MemoryStore struct {
	mu       sync.Mutex
	balances map[primitive.ObjectID]int
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: map[primitive.ObjectID]int{}}
}

// Open registers an account with a starting balance
func (m *MemoryStore) Open(id primitive.ObjectID, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] = Clamp(balance, 0)
}

// Balance returns the current balance and whether the account exists
func (m *MemoryStore) Balance(id primitive.ObjectID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[id]
	return b, ok
}

// IncrementPoints implements Store
func (m *MemoryStore) IncrementPoints(_ context.Context, id primitive.ObjectID, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[id]
	if !ok {
		return 0, models.ErrNotFound
	}
	b = Clamp(b, delta)
	m.balances[id] = b
	return b, nil
}
