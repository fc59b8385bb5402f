package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coinflow/matching-engine/config"
	"github.com/coinflow/matching-engine/internal/types"
)

const (
	tradesKey       = "trades:recent"
	pairTradesKeyFm = "trades:pair:%s"
)

// RedisTradeStore implements TradeStore using Redis sorted sets with FIFO eviction
type RedisTradeStore struct {
	client    *redis.Client
	maxTrades int
}

// NewRedisTradeStore creates a new Redis-backed trade store
func NewRedisTradeStore(cfg config.RedisConfig) (*RedisTradeStore, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	return &RedisTradeStore{
		client:    client,
		maxTrades: cfg.MaxTrades,
	}, nil
}

func (s *RedisTradeStore) Save(trade *types.Trade) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()
	if err := s.enqueue(ctx, pipe, trade); err != nil {
		return err
	}
	s.trim(ctx, pipe, trade.Pair)

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisTradeStore) SaveBatch(trades []*types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()

	pairs := make(map[string]struct{})
	for _, trade := range trades {
		if err := s.enqueue(ctx, pipe, trade); err != nil {
			continue
		}
		pairs[trade.Pair] = struct{}{}
	}

	for pair := range pairs {
		s.trim(ctx, pipe, pair)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// enqueue adds a trade to the global and per-pair timelines
// (score = timestamp in unix nanoseconds)
func (s *RedisTradeStore) enqueue(ctx context.Context, pipe redis.Pipeliner, trade *types.Trade) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return err
	}

	score := float64(trade.ExecutedAt.UnixNano())
	pipe.ZAdd(ctx, tradesKey, redis.Z{Score: score, Member: data})
	pipe.ZAdd(ctx, fmt.Sprintf(pairTradesKeyFm, trade.Pair), redis.Z{Score: score, Member: data})
	return nil
}

// trim keeps only the last N trades on both timelines
func (s *RedisTradeStore) trim(ctx context.Context, pipe redis.Pipeliner, pair string) {
	pipe.ZRemRangeByRank(ctx, tradesKey, 0, int64(-s.maxTrades-1))
	pipe.ZRemRangeByRank(ctx, fmt.Sprintf(pairTradesKeyFm, pair), 0, int64(-s.maxTrades-1))
}

func (s *RedisTradeStore) GetRecent(limit int) ([]*types.Trade, error) {
	return s.getRecentFromKey(tradesKey, limit)
}

func (s *RedisTradeStore) GetRecentByPair(pair string, limit int) ([]*types.Trade, error) {
	key := fmt.Sprintf(pairTradesKeyFm, types.NormalizePair(pair))
	return s.getRecentFromKey(key, limit)
}

func (s *RedisTradeStore) getRecentFromKey(key string, limit int) ([]*types.Trade, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	// Get last N trades (descending order)
	results, err := s.client.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	trades := make([]*types.Trade, 0, len(results))
	for _, data := range results {
		var trade types.Trade
		if err := json.Unmarshal([]byte(data), &trade); err != nil {
			continue
		}
		trades = append(trades, &trade)
	}

	return trades, nil
}

func (s *RedisTradeStore) Close() error {
	return s.client.Close()
}
