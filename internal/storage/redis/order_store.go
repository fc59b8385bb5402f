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
	orderKeyPrefix    = "order:"
	ownerOrdersPrefix = "owner_orders:"
	pairOrdersPrefix  = "pair_orders:"
	openOrdersKey     = "orders:open"
	ordersTimelineKey = "orders:timeline" // Sorted set for FIFO trimming
)

// RedisOrderStore implements OrderStore using Redis with FIFO eviction
type RedisOrderStore struct {
	client    *redis.Client
	orderTTL  time.Duration
	maxOrders int
}

// NewRedisOrderStore creates a new Redis-backed order store
func NewRedisOrderStore(cfg config.RedisConfig) (*RedisOrderStore, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	return &RedisOrderStore{
		client:    client,
		orderTTL:  cfg.OrderTTL,
		maxOrders: cfg.MaxOrders,
	}, nil
}

func (s *RedisOrderStore) Save(order *types.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// Serialize order to JSON
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()

	// Store order blob
	orderKey := fmt.Sprintf("%s%d", orderKeyPrefix, order.ID)
	pipe.Set(ctx, orderKey, data, s.orderTTL)

	// Add to owner index
	ownerKey := fmt.Sprintf("%s%s", ownerOrdersPrefix, order.Owner)
	pipe.SAdd(ctx, ownerKey, order.ID)
	pipe.Expire(ctx, ownerKey, s.orderTTL)

	// Add to pair index
	pairKey := fmt.Sprintf("%s%s", pairOrdersPrefix, order.Pair)
	pipe.SAdd(ctx, pairKey, order.ID)
	pipe.Expire(ctx, pairKey, s.orderTTL)

	// Track resting limit orders separately so the books can be rebuilt
	if order.Kind == types.LimitOrder && order.Open() {
		pipe.SAdd(ctx, openOrdersKey, order.ID)
	} else {
		pipe.SRem(ctx, openOrdersKey, order.ID)
	}

	// Add to timeline sorted set for FIFO eviction (score = creation timestamp)
	score := float64(order.CreatedAt.UnixNano())
	pipe.ZAdd(ctx, ordersTimelineKey, redis.Z{
		Score:  score,
		Member: order.ID,
	})

	// Trim to keep only last N orders (FIFO eviction)
	pipe.ZRemRangeByRank(ctx, ordersTimelineKey, 0, int64(-s.maxOrders-1))

	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisOrderStore) Get(orderID uint64) (*types.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	orderKey := fmt.Sprintf("%s%d", orderKeyPrefix, orderID)
	data, err := s.client.Get(ctx, orderKey).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("order %d not found", orderID)
	}
	if err != nil {
		return nil, err
	}

	var order types.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (s *RedisOrderStore) Update(order *types.Order) error {
	// For Redis, update is same as save (upsert)
	return s.Save(order)
}

func (s *RedisOrderStore) Remove(orderID uint64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// Get order first to clean up indexes
	order, err := s.Get(orderID)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()

	// Remove order
	orderKey := fmt.Sprintf("%s%d", orderKeyPrefix, orderID)
	pipe.Del(ctx, orderKey)

	// Remove from owner index
	ownerKey := fmt.Sprintf("%s%s", ownerOrdersPrefix, order.Owner)
	pipe.SRem(ctx, ownerKey, orderID)

	// Remove from pair index
	pairKey := fmt.Sprintf("%s%s", pairOrdersPrefix, order.Pair)
	pipe.SRem(ctx, pairKey, orderID)

	// Remove from open set and timeline
	pipe.SRem(ctx, openOrdersKey, orderID)
	pipe.ZRem(ctx, ordersTimelineKey, orderID)

	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisOrderStore) GetAll() []*types.Order {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Scan for all order keys (note: can be slow with many keys)
	pattern := orderKeyPrefix + "*"
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return []*types.Order{}
	}

	return s.getOrdersByKeys(ctx, keys)
}

func (s *RedisOrderStore) GetByOwner(owner string) []*types.Order {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ownerKey := fmt.Sprintf("%s%s", ownerOrdersPrefix, owner)
	return s.getOrdersByIndex(ctx, ownerKey)
}

func (s *RedisOrderStore) GetByPair(pair string) []*types.Order {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pairKey := fmt.Sprintf("%s%s", pairOrdersPrefix, types.NormalizePair(pair))
	return s.getOrdersByIndex(ctx, pairKey)
}

func (s *RedisOrderStore) GetOpenOrders() []*types.Order {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.getOrdersByIndex(ctx, openOrdersKey)
}

func (s *RedisOrderStore) Close() error {
	return s.client.Close()
}

// getOrdersByIndex resolves a set of order IDs into orders
func (s *RedisOrderStore) getOrdersByIndex(ctx context.Context, indexKey string) []*types.Order {
	orderIDs, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return []*types.Order{}
	}

	keys := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		keys[i] = orderKeyPrefix + id
	}

	return s.getOrdersByKeys(ctx, keys)
}

// getOrdersByKeys is a helper to fetch multiple orders by their keys
func (s *RedisOrderStore) getOrdersByKeys(ctx context.Context, keys []string) []*types.Order {
	if len(keys) == 0 {
		return []*types.Order{}
	}

	// Use MGET for efficient batch retrieval
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return []*types.Order{}
	}

	var orders []*types.Order
	for _, result := range results {
		if result == nil {
			continue
		}

		data, ok := result.(string)
		if !ok {
			continue
		}

		var order types.Order
		if err := json.Unmarshal([]byte(data), &order); err != nil {
			continue
		}

		orders = append(orders, &order)
	}

	return orders
}
