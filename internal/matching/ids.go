package matching

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDSource hands out order and trade identifiers. It is injected into the
// engine rather than living as a package-level counter so tests and
// deployments can supply their own.
type IDSource interface {
	NextOrderID() uint64
	NextTradeID() string
	// RaiseOrderIDFloor lifts the order id floor so ids minted after a
	// restart stay above every previously issued id.
	RaiseOrderIDFloor(floor uint64)
}

// CounterIDs issues monotonically increasing order ids and UUID trade ids.
// Safe for concurrent use.
type CounterIDs struct {
	last uint64
}

// NewCounterIDs returns an IDSource starting above the given floor, so ids
// survive a restart when the floor is the highest persisted id.
func NewCounterIDs(floor uint64) *CounterIDs {
	return &CounterIDs{last: floor}
}

func (c *CounterIDs) NextOrderID() uint64 {
	return atomic.AddUint64(&c.last, 1)
}

func (c *CounterIDs) NextTradeID() string {
	return uuid.NewString()
}

func (c *CounterIDs) RaiseOrderIDFloor(floor uint64) {
	for {
		cur := atomic.LoadUint64(&c.last)
		if cur >= floor || atomic.CompareAndSwapUint64(&c.last, cur, floor) {
			return
		}
	}
}
