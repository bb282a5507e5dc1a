// Package sale implements the accounting and eligibility core of a timed
// token sale.
//
// The Engine converts value contributions into token grants. Each attempt is
// gated by the sale window, the whitelist and the cap, priced by the bonus
// schedule, recorded in the contribution ledger and finally settled against
// the host ledger (tokens out to the contributor, value on to the wallet).
//
// Every contribution is all-or-nothing. The engine finalises its own books
// before calling out to the token or the host, and rolls both back together
// when anything fails:
//
//	checks:       amount, window, whitelist, sender funds
//	effects:      cap reservation, bonus, ledger record
//	interactions: value in, token disbursement, value forwarding, store commit
//
// Like the host it runs on, the engine is single-threaded: callers serialize
// mutating operations. A contribution issued from inside one of the engine's
// own external calls is rejected with ErrReentrantCall.
package sale

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rony4d/go-opera-crowdsale/crowdsale"
	"github.com/rony4d/go-opera-crowdsale/inter"
)

// Host is the ledger native value lives on. Snapshot and RevertToSnapshot
// must also cover the Token's balances.
type Host interface {
	Snapshot() int
	RevertToSnapshot(id int)
	BalanceOf(addr common.Address) *big.Int
	TransferValue(from, to common.Address, amount *big.Int) error
}

// Token is the fungible token being sold. The sale disburses from its own
// pre-funded balance.
type Token interface {
	BalanceOf(addr common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
}

// Observer is notified after each operation settles.
type Observer interface {
	Contributed(r *inter.Receipt)
	Rejected(reason Reason)
	WhitelistChanged(total int)
}

// Deps bundles the collaborators of an Engine. Clock defaults to the system
// clock and Store to an in-memory store; Observer is optional.
type Deps struct {
	Clock    Clock
	Host     Host
	Token    Token
	Store    *Store
	Observer Observer
}

// Status is a point-in-time summary of the sale.
type Status struct {
	Phase        Lifecycle
	Raised       *big.Int
	Cap          *big.Int
	Remaining    *big.Int
	Whitelisted  int
	Contributors int
	Receipts     uint64
	SaleTokens   *big.Int // undisbursed token balance of the sale account
}

// Engine orchestrates a single sale.
type Engine struct {
	cfg crowdsale.Config

	clock    Clock
	host     Host
	token    Token
	store    *Store
	observer Observer

	window    Window
	whitelist *Whitelist
	bonus     *BonusScheduler
	cap       *CapLedger
	ledger    *ContributionLedger

	seq     uint64 // last committed receipt
	entered bool   // an operation is executing its external calls

	log log.Logger
}

// New validates cfg and builds an engine on top of deps. When the store
// already holds state for the same config, that state is restored.
func New(cfg crowdsale.Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Host == nil || deps.Token == nil {
		return nil, errors.New("sale engine needs a host and a token")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Store == nil {
		deps.Store = NewMemStore()
	}
	cfg = cfg.Copy()

	e := &Engine{
		cfg:       cfg,
		clock:     deps.Clock,
		host:      deps.Host,
		token:     deps.Token,
		store:     deps.Store,
		observer:  deps.Observer,
		window:    Window{Start: cfg.StartTime, End: cfg.EndTime},
		whitelist: NewWhitelist(cfg.Admin),
		bonus:     NewBonusScheduler(cfg.Rate, cfg.Bonus),
		cap:       NewCapLedger(cfg.Cap),
		ledger:    NewContributionLedger(),
		log:       log.New("module", "sale", "sale", cfg.Name),
	}

	if err := e.store.BindConfig(cfg.Hash()); err != nil {
		return nil, err
	}
	seq, err := e.store.load(e.whitelist, e.ledger, e.cap)
	if err != nil {
		return nil, err
	}
	e.seq = seq

	e.log.Info("Sale engine ready", "start", cfg.StartTime, "end", cfg.EndTime,
		"rate", cfg.Rate, "cap", cfg.Cap, "tiers", len(cfg.Bonus), "receipts", seq)
	return e, nil
}

// Contribute processes value sent by sender. On success the tokens have been
// disbursed, the value forwarded to the wallet and the receipt journaled. On
// failure nothing changed anywhere, including the sender's balance.
func (e *Engine) Contribute(sender common.Address, value *big.Int) (*inter.Receipt, error) {
	if e.entered {
		return nil, e.reject(ErrReentrantCall.with(sender, value))
	}
	e.entered = true
	defer func() { e.entered = false }()

	r, err := e.contribute(sender, value)
	if err != nil {
		return nil, e.reject(err)
	}
	e.log.Info("Contribution accepted", "seq", r.Seq, "sender", sender, "value", r.Value,
		"multiplier", crowdsale.Multiplier(r.Multiplier), "tokens", r.Tokens, "raised", r.Raised)
	if e.observer != nil {
		e.observer.Contributed(r)
	}
	return r, nil
}

func (e *Engine) contribute(sender common.Address, value *big.Int) (r *inter.Receipt, err error) {
	// checks
	if value == nil || value.Sign() <= 0 {
		return nil, ErrInvalidAmount.with(sender, value)
	}
	if _, ok := toWord(value); !ok {
		return nil, ErrOverflow.with(sender, value)
	}
	now := e.clock.Now()
	if !e.window.IsOpen(now) {
		return nil, ErrNotOpen.with(sender, value)
	}
	if !e.whitelist.IsWhitelisted(sender) {
		return nil, ErrNotWhitelisted.with(sender, value)
	}
	if e.host.BalanceOf(sender).Cmp(value) < 0 {
		return nil, ErrInsufficientFunds.with(sender, value)
	}

	// effects, undone in reverse order on any failure below
	var undo []func()
	snap := e.host.Snapshot()
	defer func() {
		if err == nil {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		e.host.RevertToSnapshot(snap)
	}()

	if err := e.cap.TryReserve(value); err != nil {
		return nil, attach(err, sender)
	}
	undo = append(undo, func() { e.cap.release(value) })

	tokens, mult, err := e.bonus.TokensFor(value)
	if err != nil {
		return nil, attach(err, sender)
	}

	prev, existed, err := e.ledger.Record(sender, value, tokens)
	if err != nil {
		return nil, err
	}
	undo = append(undo, func() { e.ledger.revert(sender, prev, existed) })

	r = &inter.Receipt{
		Seq:        e.seq + 1,
		Sender:     sender,
		Value:      new(big.Int).Set(value),
		Multiplier: uint64(mult),
		Tokens:     tokens,
		Raised:     e.cap.Raised(),
		Time:       now,
	}

	// interactions
	if err := e.host.TransferValue(sender, e.cfg.Sale, value); err != nil {
		return nil, ErrInsufficientFunds.with(sender, value).wrap(err)
	}
	if err := e.disburse(sender, tokens); err != nil {
		return nil, err
	}
	if err := e.host.TransferValue(e.cfg.Sale, e.cfg.Wallet, value); err != nil {
		return nil, ErrInsufficientFunds.with(e.cfg.Sale, value).wrap(err)
	}

	batch := e.store.newBatch()
	batch.putRecord(sender, e.ledger.Get(sender))
	batch.putRaised(r.Raised)
	batch.putReceipt(r)
	if err := batch.write(); err != nil {
		return nil, ErrStorage.with(sender, value).wrap(err)
	}
	e.seq = r.Seq
	return r, nil
}

// disburse pays tokens out of the sale's pre-funded balance.
func (e *Engine) disburse(to common.Address, tokens *big.Int) error {
	if tokens.Sign() == 0 {
		return nil
	}
	if e.token.BalanceOf(e.cfg.Sale).Cmp(tokens) < 0 {
		return ErrInsufficientSaleTokenBalance.with(to, tokens)
	}
	if err := e.token.Transfer(e.cfg.Sale, to, tokens); err != nil {
		return ErrInsufficientSaleTokenBalance.with(to, tokens).wrap(err)
	}
	return nil
}

// reject logs and reports a failed operation, then hands err back.
func (e *Engine) reject(err error) error {
	reason, _ := ReasonOf(err)
	if IsFatal(err) {
		e.log.Error("Sale fault", "reason", reason, "err", err)
	} else {
		e.log.Debug("Operation rejected", "reason", reason, "err", err)
	}
	if e.observer != nil {
		e.observer.Rejected(reason)
	}
	return err
}

// attach fills in the identity of a component error raised without one.
func attach(err error, id common.Address) error {
	var se *Error
	if !errors.As(err, &se) || se.Identity != zeroAddr {
		return err
	}
	cp := *se
	cp.Identity = id
	return &cp
}

// WhitelistAddress sets the eligibility of every identity in ids. Only the
// admin may call it; it works in every phase of the sale and never touches
// the contribution pipeline.
func (e *Engine) WhitelistAddress(caller common.Address, ids []common.Address, flag bool) error {
	if e.entered {
		return e.reject(ErrReentrantCall.with(caller, nil))
	}
	changed, err := e.whitelist.Set(caller, ids, flag)
	if err != nil {
		return e.reject(err)
	}
	if len(changed) == 0 {
		return nil
	}

	batch := e.store.newBatch()
	for _, id := range changed {
		batch.setWhitelisted(id, flag)
	}
	if err := batch.write(); err != nil {
		for _, id := range changed {
			e.whitelist.apply(id, !flag)
		}
		return e.reject(ErrStorage.with(caller, nil).wrap(err))
	}

	e.log.Info("Whitelist updated", "flag", flag, "changed", len(changed), "total", e.whitelist.Count())
	if e.observer != nil {
		e.observer.WhitelistChanged(e.whitelist.Count())
	}
	return nil
}

// IsWhitelisted reports whether id may contribute.
func (e *Engine) IsWhitelisted(id common.Address) bool {
	return e.whitelist.IsWhitelisted(id)
}

// TotalWhitelisted returns the number of eligible identities.
func (e *Engine) TotalWhitelisted() int {
	return e.whitelist.Count()
}

// ContributionOf returns the cumulative wei contributed by id.
func (e *Engine) ContributionOf(id common.Address) *big.Int {
	return e.ledger.ContributionOf(id)
}

// TokensOf returns the cumulative token units granted to id.
func (e *Engine) TokensOf(id common.Address) *big.Int {
	return e.ledger.TokensOf(id)
}

// TotalRaised returns the cumulative wei accepted.
func (e *Engine) TotalRaised() *big.Int {
	return e.cap.Raised()
}

// Remaining returns how much more the sale accepts before hitting the cap.
func (e *Engine) Remaining() *big.Int {
	return e.cap.Remaining()
}

// Phase returns the lifecycle phase at the clock's current time.
func (e *Engine) Phase() Lifecycle {
	return e.window.Status(e.clock.Now())
}

// MultiplierFor previews the multiplier a contribution of amount would earn.
func (e *Engine) MultiplierFor(amount *big.Int) crowdsale.Multiplier {
	return e.bonus.MultiplierFor(amount)
}

// Status summarises the sale.
func (e *Engine) Status() Status {
	return Status{
		Phase:        e.Phase(),
		Raised:       e.cap.Raised(),
		Cap:          e.cap.Cap(),
		Remaining:    e.cap.Remaining(),
		Whitelisted:  e.whitelist.Count(),
		Contributors: e.ledger.Len(),
		Receipts:     e.seq,
		SaleTokens:   e.token.BalanceOf(e.cfg.Sale),
	}
}

// Config returns a copy of the sale parameters.
func (e *Engine) Config() crowdsale.Config {
	return e.cfg.Copy()
}

// Receipts returns up to limit journaled receipts starting at sequence from.
func (e *Engine) Receipts(from uint64, limit int) ([]*inter.Receipt, error) {
	return e.store.Receipts(from, limit)
}
