// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package evmcore provides the host ledger the sale settles against.
//
// Key concepts:
//   - Chain: native balances held in a go-ethereum StateDB, with journaled
//     snapshots so a failed sale operation can be rolled back in full
//   - Token: a fungible token whose balances live in the contract storage of
//     the token address, inside the same StateDB
//   - Genesis: deterministic pre-funding of accounts and token supply for
//     fake networks, replays and tests
//
// Because Token shares the Chain's StateDB, a single RevertToSnapshot undoes
// both value and token movements.

package evmcore

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
)

// ErrInsufficientBalance is returned when an account cannot cover a transfer.
var ErrInsufficientBalance = errors.New("insufficient balance for transfer")

// Chain is an in-process host ledger backed by a StateDB.
//
// Chain is not safe for concurrent use; the sale engine serializes all
// access to it.
type Chain struct {
	db    ethdb.Database
	state *state.StateDB
	root  common.Hash // last committed state root

	log log.Logger
}

// NewChain creates an empty chain over an in-memory database.
func NewChain() (*Chain, error) {
	return NewChainAt(rawdb.NewMemoryDatabase(), common.Hash{})
}

// NewChainAt opens the state with the given root from db.
func NewChainAt(db ethdb.Database, root common.Hash) (*Chain, error) {
	statedb, err := state.New(root, state.NewDatabase(db), nil)
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", root.Hex(), err)
	}
	return &Chain{
		db:    db,
		state: statedb,
		root:  root,
		log:   log.New("module", "evmcore"),
	}, nil
}

// Snapshot marks the current state so it can be restored later.
func (c *Chain) Snapshot() int {
	return c.state.Snapshot()
}

// RevertToSnapshot undoes every change since the snapshot with the given id,
// token balances included.
func (c *Chain) RevertToSnapshot(id int) {
	c.state.RevertToSnapshot(id)
}

// BalanceOf returns the native balance of addr in wei.
func (c *Chain) BalanceOf(addr common.Address) *big.Int {
	return new(big.Int).Set(c.state.GetBalance(addr))
}

// TransferValue moves amount wei from one account to another.
func (c *Chain) TransferValue(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative transfer amount %s", amount)
	}
	if c.state.GetBalance(from).Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), c.state.GetBalance(from), amount)
	}
	c.state.SubBalance(from, amount)
	c.state.AddBalance(to, amount)
	return nil
}

// Commit writes the pending state to the database and returns the new root.
// The chain keeps working on top of the committed root.
func (c *Chain) Commit() (common.Hash, error) {
	root, err := flush(c.state, false)
	if err != nil {
		return common.Hash{}, err
	}
	statedb, err := reopen(c, root)
	if err != nil {
		return common.Hash{}, err
	}
	c.state, c.root = statedb, root
	c.log.Debug("State committed", "root", root)
	return root, nil
}

// Root returns the last committed state root.
func (c *Chain) Root() common.Hash {
	return c.root
}

// reopen starts a fresh StateDB on top of a committed root.
func reopen(c *Chain, root common.Hash) (*state.StateDB, error) {
	return state.New(root, c.state.Database(), nil)
}

// flush commits state changes to the trie and then the trie to the database.
//
// clean=true is used at genesis; otherwise the trie cache is capped after the
// commit so it does not grow with every block of sale operations.
func flush(statedb *state.StateDB, clean bool) (root common.Hash, err error) {
	root, err = statedb.Commit(true)
	if err != nil {
		return
	}
	err = statedb.Database().TrieDB().Commit(root, false, nil)
	if err != nil {
		return
	}
	if !clean {
		err = statedb.Database().TrieDB().Cap(0)
	}
	return
}
