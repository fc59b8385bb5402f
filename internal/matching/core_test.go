package matching_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coinflow/matching-engine/internal/book"
	"github.com/coinflow/matching-engine/internal/matching"
	"github.com/coinflow/matching-engine/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// harness wires a book, a core, and the open-order index a registry would
// normally provide.
type harness struct {
	core   *matching.Core
	book   *book.Book
	orders map[uint64]*types.Order
}

func newHarness() *harness {
	return &harness{
		core:   matching.NewCore(matching.NewCounterIDs(0)),
		book:   book.New(),
		orders: make(map[uint64]*types.Order),
	}
}

func (h *harness) resolve(id uint64) *types.Order {
	return h.orders[id]
}

// rest inserts a limit order as resting liquidity
func (h *harness) rest(t *testing.T, o *types.Order) {
	t.Helper()
	if err := h.book.Insert(o); err != nil {
		t.Fatalf("Insert(%d) failed: %v", o.ID, err)
	}
	h.orders[o.ID] = o
}

func (h *harness) match(t *testing.T, taker *types.Order) *matching.MatchResult {
	t.Helper()
	res, err := h.core.Match(h.book, taker, h.resolve)
	if err != nil {
		t.Fatalf("Match(%d) failed: %v", taker.ID, err)
	}
	if res.Disposition == matching.DispositionResting {
		h.orders[taker.ID] = taker
	}
	return res
}

func limit(id uint64, side types.SideType, price, qty string) *types.Order {
	return types.NewOrder(id, "BTC-USD", "tester", types.LimitOrder, side, d(price), d(qty))
}

func market(id uint64, side types.SideType, qty string) *types.Order {
	return types.NewOrder(id, "BTC-USD", "tester", types.MarketOrder, side, decimal.Zero, d(qty))
}

// TestLimitOrderRestsWhenNoCross tests that a non-crossing limit order rests
func TestLimitOrderRestsWhenNoCross(t *testing.T) {
	h := newHarness()
	h.rest(t, limit(1, types.Sell, "105", "10"))

	res := h.match(t, limit(2, types.Buy, "100", "10"))

	if res.Disposition != matching.DispositionResting {
		t.Errorf("Expected resting, got %s", res.Disposition)
	}
	if len(res.Trades) != 0 {
		t.Errorf("Expected no trades, got %d", len(res.Trades))
	}
	if !h.book.Contains(2) {
		t.Error("Taker should rest in the book")
	}
}

// TestTradeAtRestingPrice tests that execution price comes from the maker
func TestTradeAtRestingPrice(t *testing.T) {
	h := newHarness()
	h.rest(t, limit(1, types.Sell, "100", "10"))

	res := h.match(t, limit(2, types.Buy, "105", "10"))

	if res.Disposition != matching.DispositionFilled {
		t.Fatalf("Expected filled, got %s", res.Disposition)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(res.Trades))
	}
	trade := res.Trades[0]
	if !trade.Price.Equal(d("100")) {
		t.Errorf("Trade must execute at resting price 100, got %s", trade.Price)
	}
	if trade.BuyOrderID != 2 || trade.SellOrderID != 1 {
		t.Errorf("Trade sides wrong: buy=%d sell=%d", trade.BuyOrderID, trade.SellOrderID)
	}
	if h.book.Len() != 0 {
		t.Error("Book should be empty after full match")
	}
}

// TestPartialFillRestsRemainder tests a limit taker bigger than the liquidity
func TestPartialFillRestsRemainder(t *testing.T) {
	h := newHarness()
	h.rest(t, limit(1, types.Sell, "100", "4"))

	res := h.match(t, limit(2, types.Buy, "100", "10"))

	if res.Disposition != matching.DispositionResting {
		t.Fatalf("Expected resting, got %s", res.Disposition)
	}
	if !res.Remainder.Equal(d("6")) {
		t.Errorf("Expected remainder 6, got %s", res.Remainder)
	}
	if res.Taker.Status != types.StatusPartiallyFilled {
		t.Errorf("Expected PARTIALLY_FILLED taker, got %s", res.Taker.Status)
	}
	best, ok := h.book.PeekBest(types.Buy)
	if !ok || best.OrderID != 2 || !best.Remaining.Equal(d("6")) {
		t.Errorf("Remainder should rest on the bid side with 6 left")
	}
}

// TestSweepMultipleLevels tests price-time priority across levels
func TestSweepMultipleLevels(t *testing.T) {
	h := newHarness()
	h.rest(t, limit(1, types.Sell, "101", "5"))
	h.rest(t, limit(2, types.Sell, "100", "5"))
	h.rest(t, limit(3, types.Sell, "100", "5")) // same price, later arrival

	res := h.match(t, limit(4, types.Buy, "101", "12"))

	if res.Disposition != matching.DispositionFilled {
		t.Fatalf("Expected filled, got %s", res.Disposition)
	}
	if len(res.Trades) != 3 {
		t.Fatalf("Expected 3 trades, got %d", len(res.Trades))
	}

	// Best price first; FIFO within a level; worse price last
	expected := []struct {
		sellID uint64
		price  string
		qty    string
	}{
		{2, "100", "5"},
		{3, "100", "5"},
		{1, "101", "2"},
	}
	for i, exp := range expected {
		trade := res.Trades[i]
		if trade.SellOrderID != exp.sellID || !trade.Price.Equal(d(exp.price)) || !trade.Quantity.Equal(d(exp.qty)) {
			t.Errorf("Trade %d: expected maker %d @%s x%s, got maker %d @%s x%s",
				i, exp.sellID, exp.price, exp.qty, trade.SellOrderID, trade.Price, trade.Quantity)
		}
	}

	// Maker 1 keeps its unfilled remainder in the book
	best, _ := h.book.PeekBest(types.Sell)
	if best.OrderID != 1 || !best.Remaining.Equal(d("3")) {
		t.Errorf("Expected maker 1 with 3 remaining, got %d with %s", best.OrderID, best.Remaining)
	}
}

// TestMarketOrderCancelsRemainder tests that market orders never rest
func TestMarketOrderCancelsRemainder(t *testing.T) {
	h := newHarness()
	h.rest(t, limit(1, types.Sell, "100", "4"))

	res := h.match(t, market(2, types.Buy, "10"))

	if res.Disposition != matching.DispositionCancelledRemainder {
		t.Fatalf("Expected cancelled_remainder, got %s", res.Disposition)
	}
	if !res.Remainder.Equal(d("6")) {
		t.Errorf("Expected remainder 6, got %s", res.Remainder)
	}
	if res.Taker.Status != types.StatusCancelled {
		t.Errorf("Expected CANCELLED taker, got %s", res.Taker.Status)
	}
	if h.book.Contains(2) {
		t.Error("Market order must never rest in the book")
	}
	if len(res.Trades) != 1 || !res.Trades[0].Quantity.Equal(d("4")) {
		t.Error("Market order should have filled the available 4")
	}
}

// TestMarketOrderEmptyBook tests a market order with no liquidity at all
func TestMarketOrderEmptyBook(t *testing.T) {
	h := newHarness()

	res := h.match(t, market(1, types.Buy, "10"))

	if res.Disposition != matching.DispositionCancelledRemainder {
		t.Fatalf("Expected cancelled_remainder, got %s", res.Disposition)
	}
	if len(res.Trades) != 0 {
		t.Errorf("Expected no trades, got %d", len(res.Trades))
	}
	if !res.Remainder.Equal(d("10")) {
		t.Errorf("Expected full remainder 10, got %s", res.Remainder)
	}
}

// TestSellSideMatching tests the mirror case of a sell taker
func TestSellSideMatching(t *testing.T) {
	h := newHarness()
	h.rest(t, limit(1, types.Buy, "100", "5"))
	h.rest(t, limit(2, types.Buy, "99", "5"))

	res := h.match(t, limit(3, types.Sell, "99", "8"))

	if res.Disposition != matching.DispositionFilled {
		t.Fatalf("Expected filled, got %s", res.Disposition)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(res.Trades))
	}
	// Best bid (100) trades first at its own price
	if !res.Trades[0].Price.Equal(d("100")) || !res.Trades[0].Quantity.Equal(d("5")) {
		t.Errorf("First trade should be 5@100, got %s@%s", res.Trades[0].Quantity, res.Trades[0].Price)
	}
	if !res.Trades[1].Price.Equal(d("99")) || !res.Trades[1].Quantity.Equal(d("3")) {
		t.Errorf("Second trade should be 3@99, got %s@%s", res.Trades[1].Quantity, res.Trades[1].Price)
	}
}

// TestConservationAcrossMatch tests filled+remaining==quantity for everyone
func TestConservationAcrossMatch(t *testing.T) {
	h := newHarness()
	h.rest(t, limit(1, types.Sell, "100", "3"))
	h.rest(t, limit(2, types.Sell, "101", "3"))

	res := h.match(t, limit(3, types.Buy, "101", "5"))

	if !res.Taker.Conserved() {
		t.Error("Taker conservation broken")
	}
	for _, maker := range res.Makers {
		if !maker.Conserved() {
			t.Errorf("Maker %d conservation broken", maker.ID)
		}
	}
}
