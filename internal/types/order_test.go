package types_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coinflow/matching-engine/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// TestNewOrder tests initial order state
func TestNewOrder(t *testing.T) {
	order := types.NewOrder(1, " btc-usd ", "alice", types.LimitOrder, types.Buy, d("100.5"), d("10"))

	if order.Pair != "BTC-USD" {
		t.Errorf("Expected normalized pair BTC-USD, got %q", order.Pair)
	}
	if order.Status != types.StatusPending {
		t.Errorf("Expected status PENDING, got %s", order.Status)
	}
	if !order.Remaining.Equal(d("10")) {
		t.Errorf("Expected remaining 10, got %s", order.Remaining)
	}
	if !order.Filled.IsZero() {
		t.Errorf("Expected filled 0, got %s", order.Filled)
	}
	if !order.Conserved() {
		t.Error("New order must satisfy conservation")
	}
	if !order.Open() {
		t.Error("New order must be open")
	}
}

// TestOrderFill tests fill state transitions
func TestOrderFill(t *testing.T) {
	order := types.NewOrder(1, "BTC-USD", "alice", types.LimitOrder, types.Buy, d("100"), d("10"))

	if err := order.Fill(d("4")); err != nil {
		t.Fatalf("Fill(4) failed: %v", err)
	}
	if order.Status != types.StatusPartiallyFilled {
		t.Errorf("Expected PARTIALLY_FILLED, got %s", order.Status)
	}
	if !order.Remaining.Equal(d("6")) || !order.Filled.Equal(d("4")) {
		t.Errorf("Expected remaining=6 filled=4, got remaining=%s filled=%s", order.Remaining, order.Filled)
	}
	if !order.Conserved() {
		t.Error("Conservation broken after partial fill")
	}

	if err := order.Fill(d("6")); err != nil {
		t.Fatalf("Fill(6) failed: %v", err)
	}
	if order.Status != types.StatusFilled {
		t.Errorf("Expected FILLED, got %s", order.Status)
	}
	if order.Open() {
		t.Error("Filled order must not be open")
	}
}

// TestOrderFillRejections tests illegal fills
func TestOrderFillRejections(t *testing.T) {
	tests := []struct {
		name string
		prep func(o *types.Order)
		qty  decimal.Decimal
	}{
		{"Overfill", func(o *types.Order) {}, d("11")},
		{"ZeroQty", func(o *types.Order) {}, decimal.Zero},
		{"NegativeQty", func(o *types.Order) {}, d("-1")},
		{"AfterFilled", func(o *types.Order) { _ = o.Fill(d("10")) }, d("1")},
		{"AfterCancelled", func(o *types.Order) { _ = o.Cancel() }, d("1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := types.NewOrder(1, "BTC-USD", "alice", types.LimitOrder, types.Buy, d("100"), d("10"))
			tt.prep(order)
			if err := order.Fill(tt.qty); err == nil {
				t.Errorf("Fill(%s) should have failed", tt.qty)
			}
		})
	}
}

// TestOrderCancel tests cancellation semantics
func TestOrderCancel(t *testing.T) {
	order := types.NewOrder(1, "BTC-USD", "alice", types.LimitOrder, types.Sell, d("100"), d("10"))
	_ = order.Fill(d("3"))

	if err := order.Cancel(); err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	if order.Status != types.StatusCancelled {
		t.Errorf("Expected CANCELLED, got %s", order.Status)
	}
	// Remaining stays as the unfilled quantity
	if !order.Remaining.Equal(d("7")) {
		t.Errorf("Expected remaining 7 after cancel, got %s", order.Remaining)
	}

	if err := order.Cancel(); err == nil {
		t.Error("Cancelling a terminal order should fail")
	}
}

// TestSideOpposite tests side inversion
func TestSideOpposite(t *testing.T) {
	if types.Buy.Opposite() != types.Sell {
		t.Error("Buy.Opposite() should be Sell")
	}
	if types.Sell.Opposite() != types.Buy {
		t.Error("Sell.Opposite() should be Buy")
	}
}
