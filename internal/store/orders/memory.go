package orders

import (
	"context"
	"encoding/json"
	"sync"

	"payment-reminders/internal/models"
)

// MemoryStore keeps the collection in process. Loads and saves deep-copy so
// callers never share slices with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	orders []models.Order

	// LoadErr and SaveErr, when set, are returned instead of touching data.
	LoadErr error
	SaveErr error
}

func NewMemoryStore(initial ...models.Order) *MemoryStore {
	return &MemoryStore{orders: clone(initial)}
}

func (s *MemoryStore) LoadOrders(ctx context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return clone(s.orders), nil
}

func (s *MemoryStore) SaveOrders(ctx context.Context, orders []models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.orders = clone(orders)
	return nil
}

func clone(in []models.Order) []models.Order {
	out := []models.Order{}
	if len(in) == 0 {
		return out
	}
	raw, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}
