package memory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflow/matching-engine/internal/storage/memory"
	"github.com/coinflow/matching-engine/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func order(id uint64, owner, pair string) *types.Order {
	return types.NewOrder(id, pair, owner, types.LimitOrder, types.Buy, d("100"), d("10"))
}

func TestOrderStoreSaveGet(t *testing.T) {
	store := memory.NewInMemoryOrderStore(10)

	saved := order(1, "alice", "BTC-USD")
	require.NoError(t, store.Save(saved))

	got, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.ID)
	assert.Equal(t, "alice", got.Owner)

	// Returned order is a copy
	got.Owner = "mallory"
	again, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Owner)

	_, err = store.Get(42)
	assert.Error(t, err)
}

func TestOrderStoreUpdate(t *testing.T) {
	store := memory.NewInMemoryOrderStore(10)
	o := order(1, "alice", "BTC-USD")
	require.NoError(t, store.Save(o))

	require.NoError(t, o.Fill(d("4")))
	require.NoError(t, store.Update(o))

	got, err := store.Get(1)
	require.NoError(t, err)
	assert.True(t, got.Remaining.Equal(d("6")))
	assert.Equal(t, types.StatusPartiallyFilled, got.Status)

	assert.Error(t, store.Update(order(42, "x", "BTC-USD")))
}

func TestOrderStoreRemove(t *testing.T) {
	store := memory.NewInMemoryOrderStore(10)
	require.NoError(t, store.Save(order(1, "alice", "BTC-USD")))
	require.NoError(t, store.Remove(1))

	_, err := store.Get(1)
	assert.Error(t, err)
	assert.Empty(t, store.GetAll())
}

func TestOrderStoreFIFOEviction(t *testing.T) {
	store := memory.NewInMemoryOrderStore(3)
	for id := uint64(1); id <= 5; id++ {
		require.NoError(t, store.Save(order(id, "alice", "BTC-USD")))
	}

	// Oldest two evicted
	_, err := store.Get(1)
	assert.Error(t, err)
	_, err = store.Get(2)
	assert.Error(t, err)

	_, err = store.Get(5)
	assert.NoError(t, err)
	assert.Len(t, store.GetAll(), 3)
}

func TestOrderStoreResaveDoesNotEvict(t *testing.T) {
	store := memory.NewInMemoryOrderStore(2)
	require.NoError(t, store.Save(order(1, "alice", "BTC-USD")))
	require.NoError(t, store.Save(order(2, "alice", "BTC-USD")))

	// Re-saving an existing id must not count as a new arrival
	require.NoError(t, store.Save(order(1, "alice", "BTC-USD")))

	_, err := store.Get(2)
	assert.NoError(t, err)
}

func TestOrderStoreFilters(t *testing.T) {
	store := memory.NewInMemoryOrderStore(10)
	require.NoError(t, store.Save(order(1, "alice", "BTC-USD")))
	require.NoError(t, store.Save(order(2, "bob", "BTC-USD")))
	require.NoError(t, store.Save(order(3, "alice", "ETH-USD")))

	assert.Len(t, store.GetByOwner("alice"), 2)
	assert.Len(t, store.GetByOwner("carol"), 0)
	assert.Len(t, store.GetByPair("btc-usd"), 2)
	assert.Len(t, store.GetByPair("ETH-USD"), 1)
}

func TestOrderStoreGetOpenOrders(t *testing.T) {
	store := memory.NewInMemoryOrderStore(10)

	open := order(1, "alice", "BTC-USD")
	require.NoError(t, store.Save(open))

	filled := order(2, "bob", "BTC-USD")
	require.NoError(t, filled.Fill(d("10")))
	require.NoError(t, store.Save(filled))

	cancelled := order(3, "carol", "BTC-USD")
	require.NoError(t, cancelled.Cancel())
	require.NoError(t, store.Save(cancelled))

	mkt := types.NewOrder(4, "BTC-USD", "dan", types.MarketOrder, types.Buy, decimal.Zero, d("5"))
	require.NoError(t, store.Save(mkt))

	got := store.GetOpenOrders()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)
}
