package marketdata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflow/matching-engine/internal/book"
	"github.com/coinflow/matching-engine/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// stubBooks serves canned top-of-book entries
type stubBooks struct {
	entries map[types.SideType]book.Entry
}

func (s *stubBooks) PeekBest(pair string, side types.SideType) (book.Entry, bool) {
	e, ok := s.entries[side]
	return e, ok
}

func trade(price, qty string, at time.Time) *types.Trade {
	return &types.Trade{
		ID:         "t",
		Pair:       "BTC-USD",
		Price:      d(price),
		Quantity:   d(qty),
		ExecutedAt: at,
	}
}

func TestLastPrice(t *testing.T) {
	a := New(&stubBooks{}, 0, 0)

	_, ok := a.LastPrice("BTC-USD")
	assert.False(t, ok, "no trades yet")

	now := time.Now().UTC()
	a.Record("BTC-USD", []*types.Trade{trade("100", "1", now), trade("101", "2", now)})

	last, ok := a.LastPrice("btc-usd")
	require.True(t, ok)
	assert.True(t, last.Equal(d("101")), "last price follows the newest trade")
}

func TestStatsWindow(t *testing.T) {
	a := New(&stubBooks{}, time.Hour, 0)
	now := time.Now().UTC()
	a.now = func() time.Time { return now }

	a.Record("BTC-USD", []*types.Trade{
		trade("100", "2", now.Add(-2*time.Hour)), // outside the window
		trade("95", "1", now.Add(-30*time.Minute)),
		trade("105", "3", now.Add(-10*time.Minute)),
	})

	stats := a.Stats("BTC-USD")
	assert.Equal(t, 2, stats.Count, "stale trade must be pruned")
	assert.True(t, stats.High.Equal(d("105")))
	assert.True(t, stats.Low.Equal(d("95")))
	assert.True(t, stats.Volume.Equal(d("4")))
}

func TestStatsEmptyPair(t *testing.T) {
	a := New(&stubBooks{}, 0, 0)
	stats := a.Stats("NO-SUCH")
	assert.Equal(t, 0, stats.Count)
	assert.True(t, stats.Volume.IsZero())
}

func TestHistoryBound(t *testing.T) {
	a := New(&stubBooks{}, time.Hour, 3)
	now := time.Now().UTC()
	a.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		a.Record("BTC-USD", []*types.Trade{trade("100", "1", now)})
	}

	stats := a.Stats("BTC-USD")
	assert.Equal(t, 3, stats.Count, "history must stay bounded")
}

func TestBestBidAsk(t *testing.T) {
	books := &stubBooks{entries: map[types.SideType]book.Entry{
		types.Buy:  {OrderID: 1, Price: d("100"), Remaining: d("5")},
		types.Sell: {OrderID: 2, Price: d("101"), Remaining: d("7")},
	}}
	a := New(books, 0, 0)

	top := a.BestBidAsk("BTC-USD")
	require.NotNil(t, top.Bid)
	require.NotNil(t, top.Ask)
	assert.True(t, top.HasSpread)
	assert.True(t, top.Spread.Equal(d("1")))
	assert.True(t, top.Bid.Quantity.Equal(d("5")))
}

func TestBestBidAskOneSided(t *testing.T) {
	books := &stubBooks{entries: map[types.SideType]book.Entry{
		types.Buy: {OrderID: 1, Price: d("100"), Remaining: d("5")},
	}}
	a := New(books, 0, 0)

	top := a.BestBidAsk("BTC-USD")
	require.NotNil(t, top.Bid)
	assert.Nil(t, top.Ask)
	assert.False(t, top.HasSpread, "spread undefined with one side empty")
}
