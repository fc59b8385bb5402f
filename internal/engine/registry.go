package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coinflow/matching-engine/internal/book"
	"github.com/coinflow/matching-engine/internal/events"
	"github.com/coinflow/matching-engine/internal/matching"
	"github.com/coinflow/matching-engine/internal/types"
)

// pairBook owns all mutable state for one trading pair. Every operation that
// touches the book or its open orders runs under mu: the matching algorithm
// peeks, trades, removes and inserts in multiple steps and is not safe under
// interleaving. Different pairs proceed in parallel.
type pairBook struct {
	mu     sync.Mutex
	book   *book.Book
	orders map[uint64]*types.Order // open orders resting in this book
	halted bool
}

// Registry routes orders to per-pair books, serializes access to each, and
// emits domain events for collaborators. Books are created lazily and never
// destroyed; an idle empty book is cheap.
type Registry struct {
	mu    sync.RWMutex
	books map[string]*pairBook

	core *matching.Core
	ids  matching.IDSource
	bus  *events.Bus
	log  *zap.Logger

	seq uint64
}

// NewRegistry wires a registry around an id source and event bus.
func NewRegistry(ids matching.IDSource, bus *events.Bus, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		books: make(map[string]*pairBook),
		core:  matching.NewCore(ids),
		ids:   ids,
		bus:   bus,
		log:   log,
	}
}

// IDs exposes the injected id source so callers mint order ids up front.
func (r *Registry) IDs() matching.IDSource { return r.ids }

func (r *Registry) pair(symbol string) *pairBook {
	symbol = types.NormalizePair(symbol)

	r.mu.RLock()
	pb, ok := r.books[symbol]
	r.mu.RUnlock()
	if ok {
		return pb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if pb, ok = r.books[symbol]; ok {
		return pb
	}
	pb = &pairBook{
		book:   book.New(),
		orders: make(map[uint64]*types.Order),
	}
	r.books[symbol] = pb
	return pb
}

// Submit validates the order, runs it through matching, and returns the
// trades produced plus the order's final disposition. Validation failures
// return ErrInvalidOrder and never touch the book.
func (r *Registry) Submit(order *types.Order) (*matching.MatchResult, error) {
	if err := validate(order); err != nil {
		return nil, err
	}
	order.Sequence = atomic.AddUint64(&r.seq, 1)

	pb := r.pair(order.Pair)
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.halted {
		return nil, fmt.Errorf("pair %s: %w", order.Pair, ErrBookHalted)
	}

	r.bus.Publish(events.OrderAccepted{Order: *order})

	res, err := r.core.Match(pb.book, order, func(id uint64) *types.Order {
		return pb.orders[id]
	})
	if err != nil {
		return res, r.halt(pb, order.Pair, err)
	}

	// Index bookkeeping: drop makers that left the book, track a resting
	// taker.
	for _, maker := range res.Makers {
		if !maker.Open() {
			delete(pb.orders, maker.ID)
		}
	}
	if res.Disposition == matching.DispositionResting {
		pb.orders[order.ID] = order
	}

	if err := r.checkInvariants(pb, res); err != nil {
		return res, r.halt(pb, order.Pair, err)
	}

	r.publishResult(res)
	return res, nil
}

func validate(order *types.Order) error {
	if order == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	if order.Pair == "" {
		return fmt.Errorf("%w: empty pair", ErrInvalidOrder)
	}
	if order.Side != types.Buy && order.Side != types.Sell {
		return fmt.Errorf("%w: side must be buy or sell", ErrInvalidOrder)
	}
	if order.Quantity.Sign() <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidOrder, order.Quantity)
	}
	switch order.Kind {
	case types.LimitOrder:
		if order.Price.Sign() <= 0 {
			return fmt.Errorf("%w: limit order requires positive price, got %s", ErrInvalidOrder, order.Price)
		}
	case types.MarketOrder:
		// Market orders carry no price of their own.
	default:
		return fmt.Errorf("%w: kind must be limit or market", ErrInvalidOrder)
	}
	if !order.Remaining.Equal(order.Quantity) || order.Filled.Sign() != 0 {
		return fmt.Errorf("%w: order must be submitted unfilled", ErrInvalidOrder)
	}
	return nil
}

// checkInvariants asserts conservation for every touched order and that the
// book is not left crossed. Failures are defects, not recoverable input
// errors.
func (r *Registry) checkInvariants(pb *pairBook, res *matching.MatchResult) error {
	if !res.Taker.Conserved() {
		return fmt.Errorf("%w: order %d filled+remaining != quantity", ErrInvariantViolation, res.Taker.ID)
	}
	for _, maker := range res.Makers {
		if !maker.Conserved() {
			return fmt.Errorf("%w: order %d filled+remaining != quantity", ErrInvariantViolation, maker.ID)
		}
	}
	if pb.book.Crossed() {
		return fmt.Errorf("%w: book left crossed after matching", ErrInvariantViolation)
	}
	return nil
}

// halt poisons the pair so no further matching can compound corrupted state.
func (r *Registry) halt(pb *pairBook, pair string, cause error) error {
	pb.halted = true
	r.log.Error("halting pair after invariant violation",
		zap.String("pair", pair),
		zap.Error(cause),
	)
	if !errors.Is(cause, ErrInvariantViolation) {
		cause = fmt.Errorf("%w: %v", ErrInvariantViolation, cause)
	}
	return cause
}

// publishResult emits the event set for one completed matching pass.
func (r *Registry) publishResult(res *matching.MatchResult) {
	taker := res.Taker

	if len(res.Trades) > 0 {
		r.bus.Publish(events.TradesExecuted{Pair: taker.Pair, Trades: res.Trades})
	}
	for _, maker := range res.Makers {
		if maker.Status == types.StatusFilled {
			r.bus.Publish(events.OrderFilled{Order: *maker, Trades: tradesTouching(res.Trades, maker.ID)})
		} else {
			r.bus.Publish(events.OrderPartiallyFilled{Order: *maker, Trades: tradesTouching(res.Trades, maker.ID)})
		}
	}

	switch res.Disposition {
	case matching.DispositionFilled:
		r.bus.Publish(events.OrderFilled{Order: *taker, Trades: res.Trades})
	case matching.DispositionResting:
		if len(res.Trades) > 0 {
			r.bus.Publish(events.OrderPartiallyFilled{Order: *taker, Trades: res.Trades})
		}
		r.bus.Publish(events.OrderRestingInBook{Order: *taker})
	case matching.DispositionCancelledRemainder:
		if len(res.Trades) > 0 {
			r.bus.Publish(events.OrderPartiallyFilled{Order: *taker, Trades: res.Trades})
		}
		r.bus.Publish(events.OrderCancelled{OrderID: taker.ID, Pair: taker.Pair, Remainder: res.Remainder})
	}
}

func tradesTouching(trades []*types.Trade, orderID uint64) []*types.Trade {
	var out []*types.Trade
	for _, t := range trades {
		if t.BuyOrderID == orderID || t.SellOrderID == orderID {
			out = append(out, t)
		}
	}
	return out
}

// Cancel removes an order from the pair's book if it still rests there.
// A false return means "not found": the order may already have fully matched,
// which is a normal outcome, never an error. Callers wanting the truth about
// final state consult durable order status, not this boolean.
func (r *Registry) Cancel(pairSymbol string, orderID uint64) bool {
	pb := r.pair(pairSymbol)
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if !pb.book.RemoveByID(orderID) {
		return false
	}
	order, ok := pb.orders[orderID]
	if ok {
		delete(pb.orders, orderID)
		remainder := order.Remaining
		if err := order.Cancel(); err == nil {
			r.bus.Publish(events.OrderCancelled{OrderID: orderID, Pair: order.Pair, Remainder: remainder})
		}
	}
	return true
}

// GetOrder returns the open resting order with the given id, or nil.
func (r *Registry) GetOrder(pairSymbol string, orderID uint64) *types.Order {
	pb := r.pair(pairSymbol)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	o, ok := pb.orders[orderID]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

// BookSnapshot is a read-only depth view of one pair.
type BookSnapshot struct {
	Pair string
	Bids []book.DepthLevel
	Asks []book.DepthLevel
}

// Snapshot returns aggregated depth for a pair, best levels first.
func (r *Registry) Snapshot(pairSymbol string, maxLevels int) BookSnapshot {
	pb := r.pair(pairSymbol)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	bids, asks := pb.book.Depth(maxLevels)
	return BookSnapshot{Pair: types.NormalizePair(pairSymbol), Bids: bids, Asks: asks}
}

// PeekBest returns the best resting entry on one side of a pair's book.
func (r *Registry) PeekBest(pairSymbol string, side types.SideType) (book.Entry, bool) {
	pb := r.pair(pairSymbol)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.book.PeekBest(side)
}

// ActivePairs lists every pair with a book instance, sorted for stable
// output. Empty books count; they exist because someone referenced the pair.
func (r *Registry) ActivePairs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pairs := make([]string, 0, len(r.books))
	for p := range r.books {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)
	return pairs
}

// Rehydrate rebuilds books from previously-pending limit orders, oldest
// first, without running them through matching: a well-formed book never
// persists crossed, so they are inserted as-is. One reconcile pass per pair
// afterwards matches away any crossing introduced by orders saved mid-fill.
func (r *Registry) Rehydrate(pending []*types.Order) error {
	orders := make([]*types.Order, 0, len(pending))
	for _, o := range pending {
		if o == nil || o.Kind != types.LimitOrder || !o.Open() || o.Remaining.Sign() <= 0 {
			continue
		}
		orders = append(orders, o)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	touched := make(map[string]*pairBook)
	var maxID uint64
	for _, o := range orders {
		if o.Sequence > 0 && o.Sequence > atomic.LoadUint64(&r.seq) {
			atomic.StoreUint64(&r.seq, o.Sequence)
		}
		if o.ID > maxID {
			maxID = o.ID
		}
		pb := r.pair(o.Pair)
		pb.mu.Lock()
		err := pb.book.Insert(o)
		if err == nil {
			pb.orders[o.ID] = o
		}
		pb.mu.Unlock()
		if err != nil {
			return fmt.Errorf("rehydrate order %d: %w", o.ID, err)
		}
		touched[o.Pair] = pb
	}
	if maxID > 0 {
		// Fresh ids must not collide with rehydrated ones: a duplicate
		// resting id would trip the book's insert check and halt the pair.
		r.ids.RaiseOrderIDFloor(maxID)
	}

	for pair, pb := range touched {
		if err := r.reconcile(pair, pb); err != nil {
			return err
		}
	}
	return nil
}

// reconcile trades away any crossing left by rehydration. The earlier-created
// order counts as the resting side, so its price wins.
func (r *Registry) reconcile(pair string, pb *pairBook) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	var trades []*types.Trade
	touched := make(map[uint64]*types.Order)

	for pb.book.Crossed() {
		bid, _ := pb.book.PeekBest(types.Buy)
		ask, _ := pb.book.PeekBest(types.Sell)

		buyer := pb.orders[bid.OrderID]
		seller := pb.orders[ask.OrderID]
		if buyer == nil || seller == nil {
			return r.halt(pb, pair, fmt.Errorf("reconcile: resting entry without owning order"))
		}

		// Earlier-created order is the resting side; its price wins.
		price := bid.Price
		if ask.CreatedAt.Before(bid.CreatedAt) {
			price = ask.Price
		}
		qty := decimal.Min(bid.Remaining, ask.Remaining)

		if err := buyer.Fill(qty); err != nil {
			return r.halt(pb, pair, err)
		}
		if err := seller.Fill(qty); err != nil {
			return r.halt(pb, pair, err)
		}
		pb.book.ReduceBest(types.Buy, qty)
		pb.book.ReduceBest(types.Sell, qty)

		trades = append(trades, &types.Trade{
			ID:          r.ids.NextTradeID(),
			Pair:        pair,
			BuyOrderID:  buyer.ID,
			SellOrderID: seller.ID,
			Price:       price,
			Quantity:    qty,
			ExecutedAt:  time.Now().UTC(),
		})
		touched[buyer.ID] = buyer
		touched[seller.ID] = seller

		for _, o := range []*types.Order{buyer, seller} {
			if !o.Open() {
				delete(pb.orders, o.ID)
			}
		}
	}

	if len(trades) == 0 {
		return nil
	}

	r.log.Warn("reconciled crossed orders during rehydration",
		zap.String("pair", pair),
		zap.Int("trades", len(trades)),
	)
	r.bus.Publish(events.TradesExecuted{Pair: pair, Trades: trades})
	for _, o := range touched {
		if o.Status == types.StatusFilled {
			r.bus.Publish(events.OrderFilled{Order: *o, Trades: tradesTouching(trades, o.ID)})
		} else if o.Status == types.StatusPartiallyFilled {
			r.bus.Publish(events.OrderPartiallyFilled{Order: *o, Trades: tradesTouching(trades, o.ID)})
		}
	}
	return nil
}
