package inter

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ContributionRecord is the per-identity running total kept by the sale.
//
// A record is created lazily on the first accepted contribution and only ever
// grows afterwards: both fields are monotonically non-decreasing for the whole
// life of the sale and records are never deleted.
type ContributionRecord struct {
	// Value is the cumulative amount of wei the identity has contributed.
	Value *big.Int

	// Tokens is the cumulative number of token units granted to the identity,
	// bonus included.
	Tokens *big.Int
}

// NewContributionRecord returns an empty record with zeroed totals.
func NewContributionRecord() ContributionRecord {
	return ContributionRecord{
		Value:  new(big.Int),
		Tokens: new(big.Int),
	}
}

// Copy returns a deep copy so callers can never mutate ledger state through a
// value they were handed by a read accessor.
func (r ContributionRecord) Copy() ContributionRecord {
	cp := NewContributionRecord()
	if r.Value != nil {
		cp.Value.Set(r.Value)
	}
	if r.Tokens != nil {
		cp.Tokens.Set(r.Tokens)
	}
	return cp
}

// Receipt describes one accepted contribution. Receipts are appended to the
// sale journal in the order the engine commits them; Seq starts at 1.
type Receipt struct {
	Seq        uint64
	Sender     common.Address
	Value      *big.Int
	Multiplier uint64 // fixed-point, see crowdsale.Multiplier
	Tokens     *big.Int
	Raised     *big.Int // total raised after this contribution
	Time       Timestamp
}

// String returns a compact single-line description used by the CLI.
func (r *Receipt) String() string {
	return fmt.Sprintf("#%d %s value=%s tokens=%s raised=%s at=%s",
		r.Seq, r.Sender.Hex(), r.Value, r.Tokens, r.Raised, r.Time)
}
