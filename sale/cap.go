package sale

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var zeroAddr = common.Address{}

// CapLedger tracks the total raised against the cap.
// Invariant: raised <= cap after every operation.
type CapLedger struct {
	cap    *big.Int
	raised *big.Int
}

// NewCapLedger creates a ledger with nothing raised yet.
func NewCapLedger(cap *big.Int) *CapLedger {
	return &CapLedger{
		cap:    new(big.Int).Set(cap),
		raised: new(big.Int),
	}
}

// TryReserve accepts amount only if raised+amount <= cap. A contribution that
// would overshoot is rejected whole; it is never truncated to the headroom.
func (c *CapLedger) TryReserve(amount *big.Int) error {
	next, ok := safeAdd(c.raised, amount)
	if !ok {
		return ErrOverflow.with(zeroAddr, amount)
	}
	if next.Cmp(c.cap) > 0 {
		return ErrCapExceeded.with(zeroAddr, amount)
	}
	c.raised = next
	return nil
}

// release undoes a reservation made by TryReserve in the same operation.
func (c *CapLedger) release(amount *big.Int) {
	prev, ok := safeSub(c.raised, amount)
	if !ok {
		panic("sale: cap release exceeds raised amount")
	}
	c.raised = prev
}

// restore sets the counter when loading persisted state.
func (c *CapLedger) restore(raised *big.Int) {
	c.raised = new(big.Int).Set(raised)
}

// Raised returns the cumulative amount accepted so far.
func (c *CapLedger) Raised() *big.Int {
	return new(big.Int).Set(c.raised)
}

// Cap returns the configured ceiling.
func (c *CapLedger) Cap() *big.Int {
	return new(big.Int).Set(c.cap)
}

// Remaining returns the headroom left under the cap.
func (c *CapLedger) Remaining() *big.Int {
	return new(big.Int).Sub(c.cap, c.raised)
}
