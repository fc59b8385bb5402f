package memory

import (
	"sync"

	"github.com/coinflow/matching-engine/internal/types"
)

// InMemoryTradeStore implements TradeStore using a bounded FIFO slice.
// Thread-safe via RWMutex. Oldest trades are evicted when maxSize is reached.
type InMemoryTradeStore struct {
	trades  []*types.Trade
	maxSize int
	mutex   sync.RWMutex
}

// NewInMemoryTradeStore creates a new in-memory trade store with a size limit
func NewInMemoryTradeStore(maxSize int) *InMemoryTradeStore {
	return &InMemoryTradeStore{
		trades:  make([]*types.Trade, 0, maxSize),
		maxSize: maxSize,
	}
}

func (s *InMemoryTradeStore) Save(trade *types.Trade) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.append(trade)
	return nil
}

func (s *InMemoryTradeStore) SaveBatch(trades []*types.Trade) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, trade := range trades {
		s.append(trade)
	}
	return nil
}

// append assumes the caller holds the write lock.
func (s *InMemoryTradeStore) append(trade *types.Trade) {
	cp := *trade
	s.trades = append(s.trades, &cp)
	if len(s.trades) > s.maxSize {
		s.trades = s.trades[1:]
	}
}

// GetRecent returns up to limit trades, newest first.
func (s *InMemoryTradeStore) GetRecent(limit int) ([]*types.Trade, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if limit <= 0 || limit > len(s.trades) {
		limit = len(s.trades)
	}

	recent := make([]*types.Trade, 0, limit)
	for i := len(s.trades) - 1; i >= 0 && len(recent) < limit; i-- {
		cp := *s.trades[i]
		recent = append(recent, &cp)
	}
	return recent, nil
}

// GetRecentByPair returns up to limit trades for one pair, newest first.
func (s *InMemoryTradeStore) GetRecentByPair(pair string, limit int) ([]*types.Trade, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	pair = types.NormalizePair(pair)
	if limit <= 0 {
		limit = len(s.trades)
	}

	recent := make([]*types.Trade, 0, limit)
	for i := len(s.trades) - 1; i >= 0 && len(recent) < limit; i-- {
		if s.trades[i].Pair == pair {
			cp := *s.trades[i]
			recent = append(recent, &cp)
		}
	}
	return recent, nil
}

func (s *InMemoryTradeStore) Close() error {
	return nil
}
