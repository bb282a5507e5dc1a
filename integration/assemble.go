package integration

import (
	"errors"
	"fmt"
	"math/big"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rony4d/go-opera-crowdsale/crowdsale"
	"github.com/rony4d/go-opera-crowdsale/evmcore"
	"github.com/rony4d/go-opera-crowdsale/inter"
	"github.com/rony4d/go-opera-crowdsale/metrics"
	"github.com/rony4d/go-opera-crowdsale/sale"
)

// headKey stores the last committed chain root in the chain database.
var headKey = []byte("crowdsale-head")

// DefaultContributorBalance is what each fake contributor starts with.
var DefaultContributorBalance = new(big.Int).Mul(big.NewInt(10000), big.NewInt(params.Ether))

// Options controls how a sale is assembled.
type Options struct {
	Rules crowdsale.Config

	// DataDir holds chaindata/ and saledata/. Empty keeps everything in memory.
	DataDir string
	CacheMB int
	Handles int

	// Contributors is the number of fake contributor accounts funded at
	// genesis with ContributorBalance each (DefaultContributorBalance if nil).
	Contributors       int
	ContributorBalance *big.Int

	// GenesisTime defaults to evmcore.FakeGenesisTime.
	GenesisTime inter.Timestamp

	Clock sale.Clock

	// Registerer receives the sale metrics; nil disables them.
	Registerer prometheus.Registerer
}

// Sale is an assembled sale and everything it runs on.
type Sale struct {
	Config  crowdsale.Config
	Chain   *evmcore.Chain
	Token   *evmcore.Token
	Store   *sale.Store
	Engine  *sale.Engine
	Metrics *metrics.Collector
	Genesis *evmcore.GenesisState // nil when the chain was reopened from disk

	chainDB ethdb.Database
	log     log.Logger
}

// Assemble builds chain, token, store and engine for opts.Rules.
//
// A fresh chain gets a fake genesis: contributors are funded and the sale
// account receives the full token allocation (cap * rate * max bonus). A
// data directory that already holds a chain is reopened at its last head.
func Assemble(opts Options) (*Sale, error) {
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}
	s := &Sale{
		Config: opts.Rules.Copy(),
		log:    log.New("module", "integration", "sale", opts.Rules.Name),
	}

	var err error
	if opts.DataDir == "" {
		s.chainDB = rawdb.NewMemoryDatabase()
		s.Store = sale.NewMemStore()
	} else {
		s.chainDB, err = rawdb.NewLevelDBDatabase(filepath.Join(opts.DataDir, "chaindata"), opts.CacheMB, opts.Handles, "crowdsale/chain/", false)
		if err != nil {
			return nil, fmt.Errorf("open chaindata: %w", err)
		}
		s.Store, err = sale.OpenStore(filepath.Join(opts.DataDir, "saledata"), opts.CacheMB, opts.Handles)
		if err != nil {
			s.chainDB.Close()
			return nil, err
		}
	}

	if err := s.openChain(opts); err != nil {
		s.Close()
		return nil, err
	}

	var observer sale.Observer
	if opts.Registerer != nil {
		if s.Metrics, err = metrics.New(opts.Registerer, s.Config.Name); err != nil {
			s.Close()
			return nil, err
		}
		observer = s.Metrics
	}

	s.Engine, err = sale.New(s.Config, sale.Deps{
		Clock:    opts.Clock,
		Host:     s.Chain,
		Token:    s.Token,
		Store:    s.Store,
		Observer: observer,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.Sync(s.Engine.Status(), s.Granted())
	}
	return s, nil
}

func (s *Sale) openChain(opts Options) error {
	head, err := s.chainDB.Get(headKey)
	if err == nil && len(head) == common.HashLength {
		root := common.BytesToHash(head)
		if s.Chain, err = evmcore.NewChainAt(s.chainDB, root); err != nil {
			return err
		}
		s.Token = evmcore.NewToken(s.Chain, s.Config.Token)
		s.log.Info("Reopened chain", "root", root)
		return nil
	}

	if s.Chain, err = evmcore.NewChainAt(s.chainDB, common.Hash{}); err != nil {
		return err
	}
	s.Token = evmcore.NewToken(s.Chain, s.Config.Token)

	balance := opts.ContributorBalance
	if balance == nil {
		balance = DefaultContributorBalance
	}
	genesis := evmcore.Genesis{
		Time:     opts.GenesisTime,
		Balances: make(map[common.Address]*big.Int, opts.Contributors),
		Tokens: map[common.Address]*big.Int{
			s.Config.Sale: s.Config.MaxTokenAllocation(),
		},
	}
	if genesis.Time == 0 {
		genesis.Time = evmcore.FakeGenesisTime
	}
	for i := 0; i < opts.Contributors; i++ {
		genesis.Balances[Contributor(i)] = new(big.Int).Set(balance)
	}
	if s.Genesis, err = evmcore.ApplyFakeGenesis(s.Chain, s.Token, genesis); err != nil {
		return err
	}
	return s.chainDB.Put(headKey, s.Genesis.Root.Bytes())
}

// Contribute runs a contribution and, on success, commits the chain head so
// the settled balances survive a restart together with the sale store.
func (s *Sale) Contribute(sender common.Address, value *big.Int) (*inter.Receipt, error) {
	r, err := s.Engine.Contribute(sender, value)
	if err != nil {
		return nil, err
	}
	return r, s.commit()
}

func (s *Sale) commit() error {
	root, err := s.Chain.Commit()
	if err != nil {
		return fmt.Errorf("commit chain: %w", err)
	}
	return s.chainDB.Put(headKey, root.Bytes())
}

// Granted returns the token units already disbursed by the sale.
func (s *Sale) Granted() *big.Int {
	return new(big.Int).Sub(s.Token.TotalSupply(), s.Token.BalanceOf(s.Config.Sale))
}

// Close releases both databases.
func (s *Sale) Close() error {
	var errs []error
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.chainDB != nil {
		if err := s.chainDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.New(fmt.Sprint(errs))
	}
	return nil
}
