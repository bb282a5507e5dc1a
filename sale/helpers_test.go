package sale

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-crowdsale/crowdsale"
	"github.com/rony4d/go-opera-crowdsale/inter"
)

var (
	admin  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	wallet = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	saleAc = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	token  = common.HexToAddress("0x00000000000000000000000000000000000000d4")

	alice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x0000000000000000000000000000000000000ca1")

	startTime = inter.FromUnix(100)
	endTime   = inter.FromUnix(200)
)

// testRules is the fake schedule: rate 10, cap 1000 wei,
// 1.5x from 100 wei and 2x from 500 wei.
func testRules() crowdsale.Config {
	return crowdsale.FakeRules(startTime, endTime).WithParties(admin, wallet, saleAc, token)
}

// memLedger is a map-backed host with snapshot support. Native and token
// balances share the snapshot stack so a revert covers both.
type memLedger struct {
	native map[common.Address]*big.Int
	tokens map[common.Address]*big.Int
	snaps  []memSnapshot

	// onTokenTransfer runs inside Token.Transfer, after balances moved.
	onTokenTransfer func(from, to common.Address, amount *big.Int)
}

type memSnapshot struct {
	native map[common.Address]*big.Int
	tokens map[common.Address]*big.Int
}

func newMemLedger() *memLedger {
	return &memLedger{
		native: make(map[common.Address]*big.Int),
		tokens: make(map[common.Address]*big.Int),
	}
}

func copyBalances(m map[common.Address]*big.Int) map[common.Address]*big.Int {
	cp := make(map[common.Address]*big.Int, len(m))
	for k, v := range m {
		cp[k] = new(big.Int).Set(v)
	}
	return cp
}

func balanceIn(m map[common.Address]*big.Int, addr common.Address) *big.Int {
	if v, ok := m[addr]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func move(m map[common.Address]*big.Int, from, to common.Address, amount *big.Int) error {
	if balanceIn(m, from).Cmp(amount) < 0 {
		return errors.New("insufficient balance")
	}
	m[from] = new(big.Int).Sub(balanceIn(m, from), amount)
	m[to] = new(big.Int).Add(balanceIn(m, to), amount)
	return nil
}

type memHost struct{ *memLedger }

func (h memHost) Snapshot() int {
	h.snaps = append(h.snaps, memSnapshot{copyBalances(h.native), copyBalances(h.tokens)})
	return len(h.snaps) - 1
}

func (h memHost) RevertToSnapshot(id int) {
	s := h.snaps[id]
	h.native, h.tokens = s.native, s.tokens
	h.snaps = h.snaps[:id]
}

func (h memHost) BalanceOf(addr common.Address) *big.Int {
	return balanceIn(h.native, addr)
}

func (h memHost) TransferValue(from, to common.Address, amount *big.Int) error {
	return move(h.native, from, to, amount)
}

type memToken struct{ *memLedger }

func (t memToken) BalanceOf(addr common.Address) *big.Int {
	return balanceIn(t.tokens, addr)
}

func (t memToken) Transfer(from, to common.Address, amount *big.Int) error {
	if err := move(t.tokens, from, to, amount); err != nil {
		return err
	}
	if t.onTokenTransfer != nil {
		t.onTokenTransfer(from, to, amount)
	}
	return nil
}

// countingObserver records every notification.
type countingObserver struct {
	receipts    []*inter.Receipt
	rejections  map[Reason]int
	whitelisted int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{rejections: make(map[Reason]int)}
}

func (o *countingObserver) Contributed(r *inter.Receipt) { o.receipts = append(o.receipts, r) }
func (o *countingObserver) Rejected(reason Reason)       { o.rejections[reason]++ }
func (o *countingObserver) WhitelistChanged(total int)   { o.whitelisted = total }

// failingDB fails every batch write while fail is set.
type failingDB struct {
	ethdb.KeyValueStore
	fail bool
}

type failingBatch struct {
	ethdb.Batch
	db *failingDB
}

func (db *failingDB) NewBatch() ethdb.Batch {
	return failingBatch{Batch: db.KeyValueStore.NewBatch(), db: db}
}

func (b failingBatch) Write() error {
	if b.db.fail {
		return errors.New("disk full")
	}
	return b.Batch.Write()
}

// fixture is an engine over a fresh memLedger with the sale fully
// pre-funded and alice, bob and carol holding 10000 wei each.
type fixture struct {
	t      *testing.T
	ledger *memLedger
	clock  *ManualClock
	obs    *countingObserver
	db     ethdb.KeyValueStore
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, testRules(), memorydb.New())
}

func newFixtureWith(t *testing.T, cfg crowdsale.Config, db ethdb.KeyValueStore) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ledger: newMemLedger(),
		clock:  NewManualClock(cfg.StartTime),
		obs:    newCountingObserver(),
		db:     db,
	}
	f.ledger.tokens[cfg.Sale] = cfg.MaxTokenAllocation()
	for _, who := range []common.Address{alice, bob, carol} {
		f.ledger.native[who] = big.NewInt(10000)
	}
	f.engine = f.open(cfg)
	return f
}

func (f *fixture) open(cfg crowdsale.Config) *Engine {
	f.t.Helper()
	e, err := New(cfg, Deps{
		Clock:    f.clock,
		Host:     memHost{f.ledger},
		Token:    memToken{f.ledger},
		Store:    NewStore(f.db),
		Observer: f.obs,
	})
	require.NoError(f.t, err)
	return e
}

func (f *fixture) whitelist(ids ...common.Address) {
	f.t.Helper()
	require.NoError(f.t, f.engine.WhitelistAddress(admin, ids, true))
}

func (f *fixture) at(d time.Duration) {
	f.clock.Set(startTime.Add(d))
}

func (f *fixture) native(addr common.Address) *big.Int {
	return memHost{f.ledger}.BalanceOf(addr)
}

func (f *fixture) tokens(addr common.Address) *big.Int {
	return memToken{f.ledger}.BalanceOf(addr)
}

// books captures every balance and counter a contribution can touch.
type books struct {
	raised       string
	contribution map[common.Address]string
	granted      map[common.Address]string
	native       map[common.Address]string
	tokens       map[common.Address]string
	receipts     uint64
}

func (f *fixture) books() books {
	b := books{
		raised:       f.engine.TotalRaised().String(),
		contribution: map[common.Address]string{},
		granted:      map[common.Address]string{},
		native:       map[common.Address]string{},
		tokens:       map[common.Address]string{},
		receipts:     f.engine.Status().Receipts,
	}
	for _, who := range []common.Address{alice, bob, carol, wallet, saleAc} {
		b.contribution[who] = f.engine.ContributionOf(who).String()
		b.granted[who] = f.engine.TokensOf(who).String()
		b.native[who] = f.native(who).String()
		b.tokens[who] = f.tokens(who).String()
	}
	return b
}

func requireBig(t *testing.T, want int64, got *big.Int, msgAndArgs ...interface{}) {
	t.Helper()
	require.Equal(t, big.NewInt(want).String(), got.String(), msgAndArgs...)
}
