package book

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/matching-engine/internal/types"
)

// ErrInvalidEntry is returned when an order cannot legally rest in the book:
// market orders, non-positive remaining quantity, or a non-positive price.
var ErrInvalidEntry = errors.New("order cannot rest in book")

// Entry is one resting limit order. It tracks only the remaining quantity;
// the owning Order is the source of truth for cumulative fill state.
type Entry struct {
	OrderID   uint64
	Price     decimal.Decimal
	Remaining decimal.Decimal
	CreatedAt time.Time
}

// level is a FIFO queue of entries at one price. Arrival order within a level
// equals createdAt order because all inserts for a pair are serialized.
type level struct {
	price   decimal.Decimal
	entries []*Entry
}

func (l *level) totalQty() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.Remaining)
	}
	return total
}

// side holds one half of the book. Levels are kept sorted best-first:
// descending price for bids, ascending for asks. Locating a level is a binary
// search; inserting a brand-new level shifts the slice, which is the
// documented scalability limit of this structure (fine for books with
// hundreds of price levels, revisit with a tree beyond that).
type side struct {
	levels []*level
	desc   bool // bids sort descending
}

func (s *side) find(price decimal.Decimal) (int, bool) {
	i := sort.Search(len(s.levels), func(i int) bool {
		if s.desc {
			return s.levels[i].price.LessThanOrEqual(price)
		}
		return s.levels[i].price.GreaterThanOrEqual(price)
	})
	if i < len(s.levels) && s.levels[i].price.Equal(price) {
		return i, true
	}
	return i, false
}

func (s *side) insert(e *Entry) {
	i, ok := s.find(e.Price)
	if ok {
		s.levels[i].entries = append(s.levels[i].entries, e)
		return
	}
	lv := &level{price: e.Price, entries: []*Entry{e}}
	s.levels = append(s.levels, nil)
	copy(s.levels[i+1:], s.levels[i:])
	s.levels[i] = lv
}

func (s *side) best() *Entry {
	if len(s.levels) == 0 {
		return nil
	}
	return s.levels[0].entries[0]
}

func (s *side) dropEmptyBest() {
	if len(s.levels) > 0 && len(s.levels[0].entries) == 0 {
		s.levels = s.levels[1:]
	}
}

// Book is the resting-liquidity structure for one trading pair. It is not
// safe for concurrent use; the registry serializes access per pair.
type Book struct {
	bids *side
	asks *side
	byID map[uint64]*Entry // cancel index
}

// New returns an empty book.
func New() *Book {
	return &Book{
		bids: &side{desc: true},
		asks: &side{desc: false},
		byID: make(map[uint64]*Entry),
	}
}

// Insert adds a resting limit order to its own side, keeping (price, time)
// priority. Only open limit orders with positive price and remaining quantity
// are accepted.
func (b *Book) Insert(o *types.Order) error {
	if o.Kind != types.LimitOrder || o.Remaining.Sign() <= 0 || o.Price.Sign() <= 0 {
		return ErrInvalidEntry
	}
	if _, exists := b.byID[o.ID]; exists {
		return ErrInvalidEntry
	}
	e := &Entry{
		OrderID:   o.ID,
		Price:     o.Price,
		Remaining: o.Remaining,
		CreatedAt: o.CreatedAt,
	}
	b.sideFor(o.Side).insert(e)
	b.byID[o.ID] = e
	return nil
}

func (b *Book) sideFor(s types.SideType) *side {
	if s == types.Buy {
		return b.bids
	}
	return b.asks
}

// PeekBest returns a copy of the best-priced, oldest entry on a side.
func (b *Book) PeekBest(s types.SideType) (Entry, bool) {
	e := b.sideFor(s).best()
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// ReduceBest decrements the best entry's remaining quantity on a side,
// removing the entry once it reaches zero.
func (b *Book) ReduceBest(s types.SideType, qty decimal.Decimal) {
	sd := b.sideFor(s)
	e := sd.best()
	if e == nil {
		return
	}
	e.Remaining = e.Remaining.Sub(qty)
	if e.Remaining.Sign() <= 0 {
		sd.levels[0].entries = sd.levels[0].entries[1:]
		sd.dropEmptyBest()
		delete(b.byID, e.OrderID)
	}
}

// RemoveByID removes an entry from either side and reports whether it was
// present.
func (b *Book) RemoveByID(orderID uint64) bool {
	e, ok := b.byID[orderID]
	if !ok {
		return false
	}
	for _, sd := range []*side{b.bids, b.asks} {
		i, found := sd.find(e.Price)
		if !found {
			continue
		}
		lv := sd.levels[i]
		for j, cand := range lv.entries {
			if cand.OrderID == orderID {
				lv.entries = append(lv.entries[:j], lv.entries[j+1:]...)
				if len(lv.entries) == 0 {
					sd.levels = append(sd.levels[:i], sd.levels[i+1:]...)
				}
				delete(b.byID, orderID)
				return true
			}
		}
	}
	return false
}

// Contains reports whether an order currently rests in the book.
func (b *Book) Contains(orderID uint64) bool {
	_, ok := b.byID[orderID]
	return ok
}

// Crossed reports whether the best bid meets or exceeds the best ask. A
// quiescent book must never be crossed.
func (b *Book) Crossed() bool {
	bid := b.bids.best()
	ask := b.asks.best()
	if bid == nil || ask == nil {
		return false
	}
	return bid.Price.GreaterThanOrEqual(ask.Price)
}

// Len returns the number of resting orders across both sides.
func (b *Book) Len() int {
	return len(b.byID)
}

// DepthLevel is the aggregate view of one price level.
type DepthLevel struct {
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	OrderCount int
}

// Depth returns up to maxLevels aggregated levels per side, best first. The
// result is a copy; callers never see internal entries.
func (b *Book) Depth(maxLevels int) (bids, asks []DepthLevel) {
	return b.bids.depth(maxLevels), b.asks.depth(maxLevels)
}

func (s *side) depth(maxLevels int) []DepthLevel {
	n := len(s.levels)
	if maxLevels > 0 && n > maxLevels {
		n = maxLevels
	}
	out := make([]DepthLevel, 0, n)
	for _, lv := range s.levels[:n] {
		out = append(out, DepthLevel{
			Price:      lv.price,
			Quantity:   lv.totalQty(),
			OrderCount: len(lv.entries),
		})
	}
	return out
}
