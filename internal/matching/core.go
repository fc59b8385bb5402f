package matching

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/matching-engine/internal/book"
	"github.com/coinflow/matching-engine/internal/types"
)

// Disposition is the final outcome of matching one incoming order.
type Disposition int8

const (
	// DispositionFilled: the incoming order fully traded.
	DispositionFilled Disposition = iota
	// DispositionResting: a limit order with remaining quantity was inserted
	// into the book.
	DispositionResting
	// DispositionCancelledRemainder: a market order ran out of liquidity; the
	// unfilled remainder was cancelled, never rested.
	DispositionCancelledRemainder
)

func (d Disposition) String() string {
	switch d {
	case DispositionFilled:
		return "filled"
	case DispositionResting:
		return "resting"
	case DispositionCancelledRemainder:
		return "cancelled_remainder"
	default:
		return "unknown"
	}
}

// MatchResult reports everything one matching pass produced.
type MatchResult struct {
	Taker       *types.Order
	Trades      []*types.Trade
	Makers      []*types.Order // resting orders whose fill state changed
	Remainder   decimal.Decimal
	Disposition Disposition
}

// OrderResolver maps a resting entry back to its owning Order. The registry
// supplies its open-order index.
type OrderResolver func(orderID uint64) *types.Order

// Core runs the price-time priority matching algorithm against one book.
// It holds no per-pair state; serialization is the caller's job.
type Core struct {
	ids IDSource
}

// NewCore builds a matching core around an id source.
func NewCore(ids IDSource) *Core {
	return &Core{ids: ids}
}

// Match converts one incoming order into zero or more trades plus a final
// disposition. The taker and any touched makers are mutated in place; trades
// always execute at the resting order's price.
func (c *Core) Match(b *book.Book, taker *types.Order, resolve OrderResolver) (*MatchResult, error) {
	res := &MatchResult{Taker: taker}
	opposite := taker.Side.Opposite()

	for taker.Remaining.Sign() > 0 {
		best, ok := b.PeekBest(opposite)
		if !ok {
			break
		}
		if best.Price.Sign() <= 0 {
			// A non-positive resting price can never have been admitted;
			// treat it as corruption rather than fall back to the taker's
			// price.
			return res, fmt.Errorf("resting order %d has non-positive price %s", best.OrderID, best.Price)
		}
		if taker.Kind == types.LimitOrder && !crosses(taker, best.Price) {
			break
		}

		maker := resolve(best.OrderID)
		if maker == nil {
			return res, fmt.Errorf("resting order %d has no owning order", best.OrderID)
		}

		qty := decimal.Min(taker.Remaining, best.Remaining)
		trade := c.newTrade(taker, maker, best.Price, qty)

		if err := maker.Fill(qty); err != nil {
			return res, fmt.Errorf("fill maker %d: %w", maker.ID, err)
		}
		if err := taker.Fill(qty); err != nil {
			return res, fmt.Errorf("fill taker %d: %w", taker.ID, err)
		}
		b.ReduceBest(opposite, qty)

		res.Trades = append(res.Trades, trade)
		res.Makers = append(res.Makers, maker)
	}

	res.Remainder = taker.Remaining
	switch {
	case taker.Remaining.IsZero():
		res.Disposition = DispositionFilled
	case taker.Kind == types.LimitOrder:
		if err := b.Insert(taker); err != nil {
			return res, fmt.Errorf("insert remainder of order %d: %w", taker.ID, err)
		}
		res.Disposition = DispositionResting
	default:
		// Market orders never rest. The remainder is cancelled; callers see
		// it in res.Remainder.
		if err := taker.Cancel(); err != nil {
			return res, fmt.Errorf("cancel market remainder of order %d: %w", taker.ID, err)
		}
		res.Disposition = DispositionCancelledRemainder
	}

	return res, nil
}

// crosses reports whether a limit taker's price meets the best opposite
// price. Market orders accept any price and never reach this check.
func crosses(taker *types.Order, bestPrice decimal.Decimal) bool {
	if taker.Side == types.Buy {
		return taker.Price.GreaterThanOrEqual(bestPrice)
	}
	return taker.Price.LessThanOrEqual(bestPrice)
}

func (c *Core) newTrade(taker, maker *types.Order, price, qty decimal.Decimal) *types.Trade {
	trade := &types.Trade{
		ID:         c.ids.NextTradeID(),
		Pair:       taker.Pair,
		Price:      price,
		Quantity:   qty,
		ExecutedAt: time.Now().UTC(),
	}
	if taker.Side == types.Buy {
		trade.BuyOrderID = taker.ID
		trade.SellOrderID = maker.ID
	} else {
		trade.BuyOrderID = maker.ID
		trade.SellOrderID = taker.ID
	}
	return trade
}
