package settle

import (
	"context"

	"go.uber.org/zap"

	"github.com/coinflow/matching-engine/internal/events"
	"github.com/coinflow/matching-engine/internal/types"
)

// Settler moves the assets a trade obligates. Implementations talk to a
// ledger, a custodian, or an exchange backend. A returned error means this
// trade did not settle; the trade itself stands either way.
type Settler interface {
	Settle(ctx context.Context, trade *types.Trade) error
}

// NoopSettler accepts every trade. Used when no downstream ledger is wired.
type NoopSettler struct{}

func (NoopSettler) Settle(ctx context.Context, trade *types.Trade) error { return nil }

// Worker consumes TradesExecuted events and runs each trade through the
// settler. Failures are reported back on the bus as SettlementFailed so
// operators and retry tooling can react.
type Worker struct {
	settler Settler
	bus     *events.Bus
	log     *zap.Logger
}

// NewWorker wires a settlement worker.
func NewWorker(settler Settler, bus *events.Bus, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{settler: settler, bus: bus, log: log}
}

// Run consumes events until the channel closes or ctx is cancelled.
// Call it in its own goroutine.
func (w *Worker) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if te, isTrades := ev.(events.TradesExecuted); isTrades {
				w.settleBatch(ctx, te)
			}
		}
	}
}

func (w *Worker) settleBatch(ctx context.Context, te events.TradesExecuted) {
	for _, trade := range te.Trades {
		if err := w.settler.Settle(ctx, trade); err != nil {
			w.log.Warn("trade settlement failed",
				zap.String("trade_id", trade.ID),
				zap.String("pair", trade.Pair),
				zap.Error(err))
			w.bus.Publish(events.SettlementFailed{
				Trade:  *trade,
				Reason: err.Error(),
			})
		}
	}
}
