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

// PostgresOrderStore implements OrderStore using PostgreSQL
type PostgresOrderStore struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderStore creates a new PostgreSQL-backed order store
func NewPostgresOrderStore(cfg config.DatabaseConfig) (*PostgresOrderStore, error) {
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

	return &PostgresOrderStore{pool: pool}, nil
}

func (s *PostgresOrderStore) Save(order *types.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO orders (order_id, owner_ref, pair, order_kind, side, price, quantity, remaining, filled, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_id) DO UPDATE SET
			remaining = EXCLUDED.remaining,
			filled = EXCLUDED.filled,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		order.ID, order.Owner, order.Pair, order.Kind, order.Side,
		order.Price, order.Quantity, order.Remaining, order.Filled,
		string(order.Status), order.CreatedAt, time.Now().UTC(),
	)

	return err
}

func (s *PostgresOrderStore) Get(orderID uint64) (*types.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := selectOrders + ` WHERE order_id = $1`

	order, err := s.scanOrder(s.pool.QueryRow(ctx, query, orderID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("order %d not found", orderID)
	}
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *PostgresOrderStore) Update(order *types.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		UPDATE orders
		SET remaining = $2, filled = $3, status = $4, updated_at = $5
		WHERE order_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		order.ID, order.Remaining, order.Filled, string(order.Status), time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("order %d not found", order.ID)
	}

	return nil
}

func (s *PostgresOrderStore) Remove(orderID uint64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `DELETE FROM orders WHERE order_id = $1`
	_, err := s.pool.Exec(ctx, query, orderID)
	return err
}

const selectOrders = `
	SELECT order_id, owner_ref, pair, order_kind, side, price, quantity, remaining, filled, status, created_at
	FROM orders`

func (s *PostgresOrderStore) GetAll() []*types.Order {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := selectOrders + ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return []*types.Order{}
	}
	defer rows.Close()

	return s.scanOrders(rows)
}

func (s *PostgresOrderStore) GetByOwner(owner string) []*types.Order {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := selectOrders + ` WHERE owner_ref = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return []*types.Order{}
	}
	defer rows.Close()

	return s.scanOrders(rows)
}

func (s *PostgresOrderStore) GetByPair(pair string) []*types.Order {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := selectOrders + ` WHERE pair = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, types.NormalizePair(pair))
	if err != nil {
		return []*types.Order{}
	}
	defer rows.Close()

	return s.scanOrders(rows)
}

func (s *PostgresOrderStore) GetOpenOrders() []*types.Order {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := selectOrders + `
		WHERE order_kind = $1 AND status IN ($2, $3) AND remaining > 0
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query,
		types.LimitOrder, string(types.StatusPending), string(types.StatusPartiallyFilled),
	)
	if err != nil {
		return []*types.Order{}
	}
	defer rows.Close()

	return s.scanOrders(rows)
}

func (s *PostgresOrderStore) Close() error {
	s.pool.Close()
	return nil
}

// scanOrder scans a single order row
func (s *PostgresOrderStore) scanOrder(row pgx.Row) (*types.Order, error) {
	var order types.Order
	var status string
	err := row.Scan(
		&order.ID, &order.Owner, &order.Pair, &order.Kind, &order.Side,
		&order.Price, &order.Quantity, &order.Remaining, &order.Filled,
		&status, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = types.OrderStatus(status)
	return &order, nil
}

// scanOrders is a helper to scan multiple order rows
func (s *PostgresOrderStore) scanOrders(rows pgx.Rows) []*types.Order {
	var orders []*types.Order

	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			continue
		}
		orders = append(orders, order)
	}

	return orders
}
