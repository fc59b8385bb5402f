package storage

import "github.com/coinflow/matching-engine/internal/types"

// CompositeOrderStore layers multiple OrderStore implementations. Writes go
// to ALL stores, reads come from the FIRST store that succeeds, so a memory
// layer in front of Redis in front of Postgres reads fast and persists
// durably.
type CompositeOrderStore struct {
	stores []OrderStore
}

// NewCompositeOrderStore creates a composite store from multiple stores
func NewCompositeOrderStore(stores ...OrderStore) *CompositeOrderStore {
	return &CompositeOrderStore{stores: stores}
}

func (c *CompositeOrderStore) Save(order *types.Order) error {
	var lastErr error
	for _, store := range c.stores {
		if err := store.Save(order); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (c *CompositeOrderStore) Get(orderID uint64) (*types.Order, error) {
	for _, store := range c.stores {
		order, err := store.Get(orderID)
		if err == nil && order != nil {
			return order, nil
		}
	}
	return nil, ErrNotFound
}

func (c *CompositeOrderStore) Update(order *types.Order) error {
	var lastErr error
	for _, store := range c.stores {
		if err := store.Update(order); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (c *CompositeOrderStore) Remove(orderID uint64) error {
	var lastErr error
	for _, store := range c.stores {
		if err := store.Remove(orderID); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (c *CompositeOrderStore) GetAll() []*types.Order {
	for _, store := range c.stores {
		if orders := store.GetAll(); len(orders) > 0 {
			return orders
		}
	}
	return []*types.Order{}
}

func (c *CompositeOrderStore) GetByOwner(owner string) []*types.Order {
	for _, store := range c.stores {
		if orders := store.GetByOwner(owner); len(orders) > 0 {
			return orders
		}
	}
	return []*types.Order{}
}

func (c *CompositeOrderStore) GetByPair(pair string) []*types.Order {
	for _, store := range c.stores {
		if orders := store.GetByPair(pair); len(orders) > 0 {
			return orders
		}
	}
	return []*types.Order{}
}

func (c *CompositeOrderStore) GetOpenOrders() []*types.Order {
	// Open orders feed book rehydration; prefer the deepest (last) store
	// since cache layers may have evicted.
	for i := len(c.stores) - 1; i >= 0; i-- {
		if orders := c.stores[i].GetOpenOrders(); len(orders) > 0 {
			return orders
		}
	}
	return []*types.Order{}
}

func (c *CompositeOrderStore) Close() error {
	var lastErr error
	for _, store := range c.stores {
		if err := store.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
