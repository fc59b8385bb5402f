package persist

import (
	"context"

	"go.uber.org/zap"

	"github.com/coinflow/matching-engine/internal/events"
	"github.com/coinflow/matching-engine/internal/storage"
	"github.com/coinflow/matching-engine/internal/types"
)

// Persister consumes engine events and mirrors order and trade state into
// storage. It runs off the matching path: a storage failure is logged and
// never reaches the engine.
type Persister struct {
	orders storage.OrderStore
	trades storage.TradeStore
	log    *zap.Logger
}

// NewPersister wires a persister over the given stores.
func NewPersister(orders storage.OrderStore, trades storage.TradeStore, log *zap.Logger) *Persister {
	if log == nil {
		log = zap.NewNop()
	}
	return &Persister{orders: orders, trades: trades, log: log}
}

// Run consumes events until the channel closes or ctx is cancelled.
// Call it in its own goroutine.
func (p *Persister) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			p.handle(ev)
		}
	}
}

func (p *Persister) handle(ev events.Event) {
	switch e := ev.(type) {
	case events.OrderAccepted:
		p.saveOrder(&e.Order)
	case events.OrderRestingInBook:
		p.saveOrder(&e.Order)
	case events.OrderPartiallyFilled:
		p.saveOrder(&e.Order)
	case events.OrderFilled:
		p.saveOrder(&e.Order)
	case events.OrderCancelled:
		p.markCancelled(e)
	case events.TradesExecuted:
		if err := p.trades.SaveBatch(e.Trades); err != nil {
			p.log.Error("failed to persist trades",
				zap.String("pair", e.Pair),
				zap.Int("count", len(e.Trades)),
				zap.Error(err))
		}
	case events.SettlementFailed:
		// Settlement outcomes are not engine state; nothing to store.
	}
}

func (p *Persister) saveOrder(order *types.Order) {
	if err := p.orders.Save(order); err != nil {
		p.log.Error("failed to persist order",
			zap.Uint64("order_id", order.ID),
			zap.String("pair", order.Pair),
			zap.Error(err))
	}
}

// markCancelled loads the last persisted state and records the terminal
// status. The event only carries the order ID and remainder.
func (p *Persister) markCancelled(e events.OrderCancelled) {
	order, err := p.orders.Get(e.OrderID)
	if err != nil {
		p.log.Warn("cancelled order not in storage",
			zap.Uint64("order_id", e.OrderID),
			zap.String("pair", e.Pair))
		return
	}

	order.Status = types.StatusCancelled
	order.Remaining = e.Remainder
	if err := p.orders.Update(order); err != nil {
		p.log.Error("failed to persist cancellation",
			zap.Uint64("order_id", e.OrderID),
			zap.Error(err))
	}
}
