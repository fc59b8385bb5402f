package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/matching-engine/internal/book"
	"github.com/coinflow/matching-engine/internal/events"
	"github.com/coinflow/matching-engine/internal/types"
)

// BookView is the slice of the registry the aggregator needs for top-of-book
// quotes.
type BookView interface {
	PeekBest(pair string, side types.SideType) (book.Entry, bool)
}

// tradePoint is the aggregator's private copy of what it needs from a trade.
// Evicting points never touches Trade records held by other collaborators.
type tradePoint struct {
	price decimal.Decimal
	qty   decimal.Decimal
	at    time.Time
}

// WindowStats summarizes trading over a rolling window.
type WindowStats struct {
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume decimal.Decimal `json:"volume"`
	Count  int             `json:"count"`
}

// Quote is one side of the top of book.
type Quote struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// TopOfBook carries best bid/ask and their spread. Spread is only defined
// when both sides exist.
type TopOfBook struct {
	Bid       *Quote          `json:"bid,omitempty"`
	Ask       *Quote          `json:"ask,omitempty"`
	Spread    decimal.Decimal `json:"spread"`
	HasSpread bool            `json:"has_spread"`
}

// Aggregator derives last price and rolling statistics from the trade
// stream. History is a bounded cache per pair, not a system of record.
type Aggregator struct {
	mu      sync.RWMutex
	history map[string][]tradePoint
	last    map[string]decimal.Decimal

	books      BookView
	window     time.Duration
	maxHistory int
	now        func() time.Time
}

// New builds an aggregator retaining at most maxHistory trades per pair
// inside the given window (default 24h).
func New(books BookView, window time.Duration, maxHistory int) *Aggregator {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if maxHistory <= 0 {
		maxHistory = 10000
	}
	return &Aggregator{
		history:    make(map[string][]tradePoint),
		last:       make(map[string]decimal.Decimal),
		books:      books,
		window:     window,
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// Run consumes engine events until the channel closes or ctx is done. Only
// TradesExecuted events matter here.
func (a *Aggregator) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if te, isTrades := ev.(events.TradesExecuted); isTrades {
				a.Record(te.Pair, te.Trades)
			}
		}
	}
}

// Record folds executed trades into the per-pair history.
func (a *Aggregator) Record(pair string, trades []*types.Trade) {
	if len(trades) == 0 {
		return
	}
	pair = types.NormalizePair(pair)

	a.mu.Lock()
	defer a.mu.Unlock()

	points := a.history[pair]
	for _, t := range trades {
		points = append(points, tradePoint{price: t.Price, qty: t.Quantity, at: t.ExecutedAt})
		a.last[pair] = t.Price
	}
	a.history[pair] = a.prune(points)
}

// prune drops points outside the window, then oldest-first down to
// maxHistory.
func (a *Aggregator) prune(points []tradePoint) []tradePoint {
	cutoff := a.now().Add(-a.window)
	start := 0
	for start < len(points) && points[start].at.Before(cutoff) {
		start++
	}
	points = points[start:]
	if len(points) > a.maxHistory {
		points = points[len(points)-a.maxHistory:]
	}
	return points
}

// LastPrice returns the most recent trade price for a pair. ok is false when
// the pair has not traded yet.
func (a *Aggregator) LastPrice(pair string) (decimal.Decimal, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.last[types.NormalizePair(pair)]
	return p, ok
}

// Stats computes high/low/volume over the aggregator's window. Zeroed stats
// come back when nothing traded within the window.
func (a *Aggregator) Stats(pair string) WindowStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	pair = types.NormalizePair(pair)
	points := a.prune(a.history[pair])
	a.history[pair] = points

	stats := WindowStats{High: decimal.Zero, Low: decimal.Zero, Volume: decimal.Zero}
	for i, p := range points {
		if i == 0 {
			stats.High = p.price
			stats.Low = p.price
		} else {
			if p.price.GreaterThan(stats.High) {
				stats.High = p.price
			}
			if p.price.LessThan(stats.Low) {
				stats.Low = p.price
			}
		}
		stats.Volume = stats.Volume.Add(p.qty)
		stats.Count++
	}
	return stats
}

// BestBidAsk reads the top of book straight from the live book.
func (a *Aggregator) BestBidAsk(pair string) TopOfBook {
	var top TopOfBook
	if bid, ok := a.books.PeekBest(pair, types.Buy); ok {
		top.Bid = &Quote{Price: bid.Price, Quantity: bid.Remaining}
	}
	if ask, ok := a.books.PeekBest(pair, types.Sell); ok {
		top.Ask = &Quote{Price: ask.Price, Quantity: ask.Remaining}
	}
	if top.Bid != nil && top.Ask != nil {
		top.Spread = top.Ask.Price.Sub(top.Bid.Price)
		top.HasSpread = true
	}
	return top
}
