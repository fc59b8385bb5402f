package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflow/matching-engine/internal/engine"
	"github.com/coinflow/matching-engine/internal/events"
	"github.com/coinflow/matching-engine/internal/matching"
	"github.com/coinflow/matching-engine/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestRegistry() (*engine.Registry, *events.Bus, <-chan events.Event) {
	bus := events.NewBus()
	ch := bus.Subscribe(256)
	return engine.NewRegistry(matching.NewCounterIDs(0), bus, nil), bus, ch
}

func submitLimit(t *testing.T, r *engine.Registry, pair string, side types.SideType, price, qty string) *matching.MatchResult {
	t.Helper()
	order := types.NewOrder(r.IDs().NextOrderID(), pair, "tester", types.LimitOrder, side, d(price), d(qty))
	res, err := r.Submit(order)
	require.NoError(t, err)
	return res
}

// drainEvents collects everything published so far
func drainEvents(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(evs []events.Event) []events.Type {
	out := make([]events.Type, len(evs))
	for i, ev := range evs {
		out[i] = ev.EventType()
	}
	return out
}

func TestSubmitValidation(t *testing.T) {
	r, _, _ := newTestRegistry()

	tests := []struct {
		name  string
		order *types.Order
	}{
		{"NilOrder", nil},
		{"EmptyPair", types.NewOrder(1, "", "t", types.LimitOrder, types.Buy, d("100"), d("10"))},
		{"BadSide", types.NewOrder(2, "BTC-USD", "t", types.LimitOrder, types.NoActionSide, d("100"), d("10"))},
		{"ZeroQuantity", types.NewOrder(3, "BTC-USD", "t", types.LimitOrder, types.Buy, d("100"), decimal.Zero)},
		{"NegativeQuantity", types.NewOrder(4, "BTC-USD", "t", types.LimitOrder, types.Buy, d("100"), d("-2"))},
		{"LimitWithoutPrice", types.NewOrder(5, "BTC-USD", "t", types.LimitOrder, types.Buy, decimal.Zero, d("10"))},
		{"BadKind", types.NewOrder(6, "BTC-USD", "t", types.NoActionKind, types.Buy, d("100"), d("10"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Submit(tt.order)
			assert.ErrorIs(t, err, engine.ErrInvalidOrder)
		})
	}
}

func TestMarketOrderWithoutPriceIsValid(t *testing.T) {
	r, _, _ := newTestRegistry()
	submitLimit(t, r, "BTC-USD", types.Sell, "100", "5")

	order := types.NewOrder(r.IDs().NextOrderID(), "BTC-USD", "t", types.MarketOrder, types.Buy, decimal.Zero, d("5"))
	res, err := r.Submit(order)
	require.NoError(t, err)
	assert.Equal(t, matching.DispositionFilled, res.Disposition)
}

func TestSubmitEventSequence(t *testing.T) {
	r, _, ch := newTestRegistry()

	// Resting limit order: accepted then resting
	submitLimit(t, r, "BTC-USD", types.Sell, "100", "10")
	assert.Equal(t,
		[]events.Type{events.TypeOrderAccepted, events.TypeOrderRestingInBook},
		eventTypes(drainEvents(ch)))

	// Full cross: accepted, trades, maker filled, taker filled
	submitLimit(t, r, "BTC-USD", types.Buy, "100", "10")
	assert.Equal(t,
		[]events.Type{
			events.TypeOrderAccepted,
			events.TypeTradesExecuted,
			events.TypeOrderFilled, // maker
			events.TypeOrderFilled, // taker
		},
		eventTypes(drainEvents(ch)))
}

func TestMarketRemainderEmitsCancelled(t *testing.T) {
	r, _, ch := newTestRegistry()
	submitLimit(t, r, "BTC-USD", types.Sell, "100", "4")
	drainEvents(ch)

	order := types.NewOrder(r.IDs().NextOrderID(), "BTC-USD", "t", types.MarketOrder, types.Buy, decimal.Zero, d("10"))
	res, err := r.Submit(order)
	require.NoError(t, err)
	assert.Equal(t, matching.DispositionCancelledRemainder, res.Disposition)

	evs := drainEvents(ch)
	last := evs[len(evs)-1]
	cancelled, ok := last.(events.OrderCancelled)
	require.True(t, ok, "last event should be OrderCancelled, got %T", last)
	assert.Equal(t, order.ID, cancelled.OrderID)
	assert.True(t, cancelled.Remainder.Equal(d("6")))
}

func TestCancelSemantics(t *testing.T) {
	r, _, ch := newTestRegistry()
	res := submitLimit(t, r, "BTC-USD", types.Buy, "100", "10")
	drainEvents(ch)

	// First cancel succeeds and emits the event
	assert.True(t, r.Cancel("BTC-USD", res.Taker.ID))
	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	cancelled, ok := evs[0].(events.OrderCancelled)
	require.True(t, ok)
	assert.True(t, cancelled.Remainder.Equal(d("10")))

	// Second cancel is a clean "not found", no event, no error
	assert.False(t, r.Cancel("BTC-USD", res.Taker.ID))
	assert.Empty(t, drainEvents(ch))

	// Cancelling a fully matched order is also "not found"
	sell := submitLimit(t, r, "BTC-USD", types.Sell, "100", "5")
	submitLimit(t, r, "BTC-USD", types.Buy, "100", "5")
	assert.False(t, r.Cancel("BTC-USD", sell.Taker.ID))
}

func TestNoCrossedBookAfterSubmits(t *testing.T) {
	r, _, _ := newTestRegistry()

	submitLimit(t, r, "BTC-USD", types.Buy, "100", "10")
	submitLimit(t, r, "BTC-USD", types.Sell, "101", "10")
	submitLimit(t, r, "BTC-USD", types.Buy, "101", "4") // crosses, trades 4

	bid, hasBid := r.PeekBest("BTC-USD", types.Buy)
	ask, hasAsk := r.PeekBest("BTC-USD", types.Sell)
	require.True(t, hasBid)
	require.True(t, hasAsk)
	assert.True(t, bid.Price.LessThan(ask.Price), "book must not be crossed: bid %s ask %s", bid.Price, ask.Price)
	assert.True(t, ask.Remaining.Equal(d("6")))
}

func TestPairsAreIndependent(t *testing.T) {
	r, _, _ := newTestRegistry()

	submitLimit(t, r, "BTC-USD", types.Sell, "100", "5")
	res := submitLimit(t, r, "eth-usd", types.Buy, "100", "5")

	// A buy on ETH-USD must not match BTC-USD liquidity
	assert.Equal(t, matching.DispositionResting, res.Disposition)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, r.ActivePairs())
}

func TestSnapshot(t *testing.T) {
	r, _, _ := newTestRegistry()
	submitLimit(t, r, "BTC-USD", types.Buy, "100", "10")
	submitLimit(t, r, "BTC-USD", types.Buy, "100", "5")
	submitLimit(t, r, "BTC-USD", types.Buy, "99", "1")
	submitLimit(t, r, "BTC-USD", types.Sell, "105", "3")

	snap := r.Snapshot("btc-usd", 0)
	assert.Equal(t, "BTC-USD", snap.Pair)
	require.Len(t, snap.Bids, 2)
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Bids[0].Quantity.Equal(d("15")))
	assert.Equal(t, 2, snap.Bids[0].OrderCount)
}

func TestGetOrderReturnsCopy(t *testing.T) {
	r, _, _ := newTestRegistry()
	res := submitLimit(t, r, "BTC-USD", types.Buy, "100", "10")

	got := r.GetOrder("BTC-USD", res.Taker.ID)
	require.NotNil(t, got)
	got.Remaining = d("999")

	again := r.GetOrder("BTC-USD", res.Taker.ID)
	assert.True(t, again.Remaining.Equal(d("10")), "mutating the returned order must not touch engine state")

	assert.Nil(t, r.GetOrder("BTC-USD", 424242))
}

func TestRehydrateRebuildsWithoutMatching(t *testing.T) {
	r, _, _ := newTestRegistry()

	base := time.Now().UTC().Add(-time.Hour)
	bid := types.NewOrder(1, "BTC-USD", "a", types.LimitOrder, types.Buy, d("100"), d("10"))
	bid.CreatedAt = base
	ask := types.NewOrder(2, "BTC-USD", "b", types.LimitOrder, types.Sell, d("101"), d("5"))
	ask.CreatedAt = base.Add(time.Minute)
	filled := types.NewOrder(3, "BTC-USD", "c", types.LimitOrder, types.Buy, d("102"), d("5"))
	require.NoError(t, filled.Fill(d("5")))
	market := types.NewOrder(4, "BTC-USD", "d", types.MarketOrder, types.Buy, decimal.Zero, d("5"))

	require.NoError(t, r.Rehydrate([]*types.Order{ask, bid, filled, market, nil}))

	// Only the two open limit orders made it back into the book
	snap := r.Snapshot("BTC-USD", 0)
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Bids[0].Price.Equal(d("100")))
	assert.True(t, snap.Asks[0].Price.Equal(d("101")))
}

func TestRehydrateReconcilesCrossing(t *testing.T) {
	r, _, ch := newTestRegistry()

	base := time.Now().UTC().Add(-time.Hour)
	bid := types.NewOrder(1, "BTC-USD", "a", types.LimitOrder, types.Buy, d("102"), d("5"))
	bid.CreatedAt = base
	ask := types.NewOrder(2, "BTC-USD", "b", types.LimitOrder, types.Sell, d("100"), d("5"))
	ask.CreatedAt = base.Add(time.Minute)

	require.NoError(t, r.Rehydrate([]*types.Order{bid, ask}))

	// Crossing traded away at the earlier order's price
	evs := drainEvents(ch)
	var traded *events.TradesExecuted
	for i := range evs {
		if te, ok := evs[i].(events.TradesExecuted); ok {
			traded = &te
		}
	}
	require.NotNil(t, traded, "reconciliation should publish TradesExecuted")
	require.Len(t, traded.Trades, 1)
	assert.True(t, traded.Trades[0].Price.Equal(d("102")), "earlier bid's price wins, got %s", traded.Trades[0].Price)
	assert.True(t, traded.Trades[0].Quantity.Equal(d("5")))

	// Book ends flat
	_, hasBid := r.PeekBest("BTC-USD", types.Buy)
	_, hasAsk := r.PeekBest("BTC-USD", types.Sell)
	assert.False(t, hasBid)
	assert.False(t, hasAsk)

	// Sequence floor advanced past rehydrated sequences is covered by new
	// submissions still succeeding
	submitLimit(t, r, "BTC-USD", types.Buy, "90", "1")
}

func TestRehydrateAdvancesOrderIDs(t *testing.T) {
	r, _, _ := newTestRegistry()

	base := time.Now().UTC().Add(-time.Hour)
	bid := types.NewOrder(7, "BTC-USD", "a", types.LimitOrder, types.Buy, d("100"), d("10"))
	bid.CreatedAt = base
	ask := types.NewOrder(3, "ETH-USD", "b", types.LimitOrder, types.Sell, d("2000"), d("1"))
	ask.CreatedAt = base.Add(time.Minute)

	require.NoError(t, r.Rehydrate([]*types.Order{bid, ask}))

	// Fresh ids start above the highest rehydrated id, so a new resting
	// order never collides with one already in a book
	assert.Equal(t, uint64(8), r.IDs().NextOrderID())

	res := submitLimit(t, r, "BTC-USD", types.Buy, "99", "5")
	assert.Equal(t, matching.DispositionResting, res.Disposition)
	assert.Equal(t, uint64(9), res.Taker.ID)

	// The rehydrated liquidity is still matchable with fresh ids
	res = submitLimit(t, r, "BTC-USD", types.Sell, "100", "4")
	require.Len(t, res.Trades, 1)
	assert.Equal(t, uint64(7), res.Trades[0].BuyOrderID)
	assert.True(t, res.Trades[0].Price.Equal(d("100")))
}
