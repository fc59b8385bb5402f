package memory

import (
	"fmt"
	"sync"

	"github.com/coinflow/matching-engine/internal/types"
)

// InMemoryOrderStore implements OrderStore using a map with FIFO eviction.
// Thread-safe via RWMutex. When maxSize is reached, oldest orders are evicted
// to keep the working set bounded.
type InMemoryOrderStore struct {
	orders   map[uint64]*types.Order
	orderIDs []uint64 // FIFO queue for eviction
	maxSize  int
	mutex    sync.RWMutex
}

// NewInMemoryOrderStore creates a new in-memory order store with a size limit
func NewInMemoryOrderStore(maxSize int) *InMemoryOrderStore {
	return &InMemoryOrderStore{
		orders:   make(map[uint64]*types.Order),
		orderIDs: make([]uint64, 0, maxSize),
		maxSize:  maxSize,
	}
}

func (s *InMemoryOrderStore) Save(order *types.Order) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.orders[order.ID]; !exists {
		s.orderIDs = append(s.orderIDs, order.ID)

		if len(s.orderIDs) > s.maxSize {
			oldestID := s.orderIDs[0]
			delete(s.orders, oldestID)
			s.orderIDs = s.orderIDs[1:]
		}
	}

	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *InMemoryOrderStore) Get(orderID uint64) (*types.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, exists := s.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("order %d not found", orderID)
	}
	cp := *order
	return &cp, nil
}

func (s *InMemoryOrderStore) Update(order *types.Order) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.orders[order.ID]; !exists {
		return fmt.Errorf("order %d not found", order.ID)
	}
	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *InMemoryOrderStore) Remove(orderID uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.orders, orderID)

	for i, id := range s.orderIDs {
		if id == orderID {
			s.orderIDs = append(s.orderIDs[:i], s.orderIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryOrderStore) GetAll() []*types.Order {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	orders := make([]*types.Order, 0, len(s.orders))
	for _, order := range s.orders {
		cp := *order
		orders = append(orders, &cp)
	}
	return orders
}

func (s *InMemoryOrderStore) GetByOwner(owner string) []*types.Order {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var orders []*types.Order
	for _, order := range s.orders {
		if order.Owner == owner {
			cp := *order
			orders = append(orders, &cp)
		}
	}
	return orders
}

func (s *InMemoryOrderStore) GetByPair(pair string) []*types.Order {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	pair = types.NormalizePair(pair)
	var orders []*types.Order
	for _, order := range s.orders {
		if order.Pair == pair {
			cp := *order
			orders = append(orders, &cp)
		}
	}
	return orders
}

func (s *InMemoryOrderStore) GetOpenOrders() []*types.Order {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var orders []*types.Order
	for _, order := range s.orders {
		if order.Kind == types.LimitOrder && order.Open() && order.Remaining.Sign() > 0 {
			cp := *order
			orders = append(orders, &cp)
		}
	}
	return orders
}

func (s *InMemoryOrderStore) Close() error {
	// No cleanup needed for in-memory store
	return nil
}
