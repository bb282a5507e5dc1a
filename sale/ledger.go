package sale

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-crowdsale/inter"
)

// ContributionLedger keeps the cumulative value and token grant per identity.
// Records are created on the first accepted contribution and only grow.
type ContributionLedger struct {
	records map[common.Address]inter.ContributionRecord
}

// NewContributionLedger creates an empty ledger.
func NewContributionLedger() *ContributionLedger {
	return &ContributionLedger{
		records: make(map[common.Address]inter.ContributionRecord),
	}
}

// Record adds one accepted contribution to id's totals and returns the
// previous record so the caller can undo it. The ledger is left untouched on
// overflow.
func (l *ContributionLedger) Record(id common.Address, amount, tokens *big.Int) (prev inter.ContributionRecord, existed bool, err error) {
	cur, existed := l.records[id]
	if !existed {
		cur = inter.NewContributionRecord()
	}
	value, ok := safeAdd(cur.Value, amount)
	if !ok {
		return prev, existed, ErrOverflow.with(id, amount)
	}
	granted, ok := safeAdd(cur.Tokens, tokens)
	if !ok {
		return prev, existed, ErrOverflow.with(id, amount)
	}
	l.records[id] = inter.ContributionRecord{Value: value, Tokens: granted}
	return cur, existed, nil
}

// revert puts back a record returned by Record.
func (l *ContributionLedger) revert(id common.Address, prev inter.ContributionRecord, existed bool) {
	if !existed {
		delete(l.records, id)
		return
	}
	l.records[id] = prev
}

// restore installs a persisted record.
func (l *ContributionLedger) restore(id common.Address, rec inter.ContributionRecord) {
	l.records[id] = rec.Copy()
}

// Get returns a copy of id's record; unknown identities get a zero record.
func (l *ContributionLedger) Get(id common.Address) inter.ContributionRecord {
	rec, ok := l.records[id]
	if !ok {
		return inter.NewContributionRecord()
	}
	return rec.Copy()
}

// ContributionOf returns the cumulative wei contributed by id.
func (l *ContributionLedger) ContributionOf(id common.Address) *big.Int {
	return l.Get(id).Value
}

// TokensOf returns the cumulative token units granted to id.
func (l *ContributionLedger) TokensOf(id common.Address) *big.Int {
	return l.Get(id).Tokens
}

// Len returns the number of identities that contributed at least once.
func (l *ContributionLedger) Len() int {
	return len(l.records)
}
