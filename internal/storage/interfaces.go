package storage

import "github.com/coinflow/matching-engine/internal/types"

// OrderStore abstracts order persistence. Implementations can be in-memory,
// Redis, PostgreSQL, or a write-through composite of those.
type OrderStore interface {
	// Save stores a new order (upsert semantics are acceptable)
	Save(order *types.Order) error

	// Get retrieves an order by ID
	Get(orderID uint64) (*types.Order, error)

	// Update records fill-state and status changes
	Update(order *types.Order) error

	// Remove deletes an order from storage
	Remove(orderID uint64) error

	// GetAll returns all tracked orders
	GetAll() []*types.Order

	// GetByOwner returns all orders placed by one owner reference
	GetByOwner(owner string) []*types.Order

	// GetByPair returns all orders for a trading pair
	GetByPair(pair string) []*types.Order

	// GetOpenOrders returns resting limit orders, used to rebuild the books
	// at startup
	GetOpenOrders() []*types.Order

	// Close releases any resources held by the store
	Close() error
}

// TradeStore abstracts the append-only trade log. Implementations can be an
// in-memory buffer, a file log, Redis, or PostgreSQL.
type TradeStore interface {
	// Save persists a single trade
	Save(trade *types.Trade) error

	// SaveBatch persists the trades of one matching pass together
	SaveBatch(trades []*types.Trade) error

	// GetRecent retrieves the N most recent trades across all pairs
	GetRecent(limit int) ([]*types.Trade, error)

	// GetRecentByPair retrieves the N most recent trades for one pair
	GetRecentByPair(pair string, limit int) ([]*types.Trade, error)

	// Close releases any resources held by the store
	Close() error
}
