package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinflow/matching-engine/config"
	"github.com/coinflow/matching-engine/internal/types"
)

// PostgresTradeStore implements TradeStore using PostgreSQL
type PostgresTradeStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTradeStore creates a new PostgreSQL-backed trade store
func NewPostgresTradeStore(cfg config.DatabaseConfig) (*PostgresTradeStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &PostgresTradeStore{pool: pool}, nil
}

const insertTrade = `
	INSERT INTO trades (trade_id, pair, buy_order_id, sell_order_id, price, quantity, executed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (trade_id) DO NOTHING
`

func (s *PostgresTradeStore) Save(trade *types.Trade) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, insertTrade,
		trade.ID, trade.Pair, trade.BuyOrderID, trade.SellOrderID,
		trade.Price, trade.Quantity, trade.ExecutedAt,
	)

	return err
}

func (s *PostgresTradeStore) SaveBatch(trades []*types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use pgx batch for efficient batch inserts
	batch := &pgx.Batch{}
	for _, trade := range trades {
		batch.Queue(insertTrade,
			trade.ID, trade.Pair, trade.BuyOrderID, trade.SellOrderID,
			trade.Price, trade.Quantity, trade.ExecutedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	// Execute all batched queries
	for i := 0; i < len(trades); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

const selectTrades = `
	SELECT trade_id, pair, buy_order_id, sell_order_id, price, quantity, executed_at
	FROM trades`

func (s *PostgresTradeStore) GetRecent(limit int) ([]*types.Trade, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	query := selectTrades + ` ORDER BY executed_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanTrades(rows)
}

func (s *PostgresTradeStore) GetRecentByPair(pair string, limit int) ([]*types.Trade, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	query := selectTrades + ` WHERE pair = $1 ORDER BY executed_at DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, types.NormalizePair(pair), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanTrades(rows)
}

func (s *PostgresTradeStore) Close() error {
	s.pool.Close()
	return nil
}

// scanTrades is a helper to scan multiple trade rows
func (s *PostgresTradeStore) scanTrades(rows pgx.Rows) ([]*types.Trade, error) {
	var trades []*types.Trade

	for rows.Next() {
		var trade types.Trade
		err := rows.Scan(
			&trade.ID, &trade.Pair, &trade.BuyOrderID, &trade.SellOrderID,
			&trade.Price, &trade.Quantity, &trade.ExecutedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, &trade)
	}

	return trades, rows.Err()
}
