package storage

import "github.com/coinflow/matching-engine/internal/types"

// CompositeTradeStore fans trade writes out to all stores and serves reads
// from the first layer holding data.
type CompositeTradeStore struct {
	stores []TradeStore
}

// NewCompositeTradeStore creates a composite store from multiple stores
func NewCompositeTradeStore(stores ...TradeStore) *CompositeTradeStore {
	return &CompositeTradeStore{stores: stores}
}

func (c *CompositeTradeStore) Save(trade *types.Trade) error {
	var lastErr error
	for _, store := range c.stores {
		if err := store.Save(trade); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (c *CompositeTradeStore) SaveBatch(trades []*types.Trade) error {
	var lastErr error
	for _, store := range c.stores {
		if err := store.SaveBatch(trades); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (c *CompositeTradeStore) GetRecent(limit int) ([]*types.Trade, error) {
	for _, store := range c.stores {
		trades, err := store.GetRecent(limit)
		if err == nil && len(trades) > 0 {
			return trades, nil
		}
	}
	return []*types.Trade{}, nil
}

func (c *CompositeTradeStore) GetRecentByPair(pair string, limit int) ([]*types.Trade, error) {
	for _, store := range c.stores {
		trades, err := store.GetRecentByPair(pair, limit)
		if err == nil && len(trades) > 0 {
			return trades, nil
		}
	}
	return []*types.Trade{}, nil
}

func (c *CompositeTradeStore) Close() error {
	var lastErr error
	for _, store := range c.stores {
		if err := store.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
