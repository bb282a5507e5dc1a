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

// This file handles fake genesis creation for local sales, replays and tests.

package evmcore

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rony4d/go-opera-crowdsale/inter"
)

// FakeGenesisTime is the default genesis timestamp of fake sales.
// Timestamp: 1608600000 seconds since Unix epoch (December 22, 2020)
var FakeGenesisTime = inter.Timestamp(1608600000 * time.Second)

// Genesis describes the allocation a fake chain starts from.
type Genesis struct {
	Time inter.Timestamp

	// Balances pre-funds accounts with native value (in wei).
	Balances map[common.Address]*big.Int

	// Tokens allocates token units, typically the whole sale allocation to the
	// sale account.
	Tokens map[common.Address]*big.Int
}

// GenesisState is what ApplyFakeGenesis leaves behind.
type GenesisState struct {
	Time        inter.Timestamp
	Root        common.Hash // committed state root
	Accounts    int
	TokenSupply *big.Int
}

// ApplyFakeGenesis pre-funds accounts and mints the token allocation, then
// commits the state.
//
// Process:
//  1. Sets initial native balances for all listed accounts
//  2. Mints the listed token allocations
//  3. Commits the state to the database and computes the state root
//
// Example:
//
//	state, err := ApplyFakeGenesis(chain, token, Genesis{
//	    Time:     FakeGenesisTime,
//	    Balances: map[common.Address]*big.Int{FakeAddress(1): big.NewInt(1e18)},
//	    Tokens:   map[common.Address]*big.Int{saleAddr: cfg.MaxTokenAllocation()},
//	})
func ApplyFakeGenesis(chain *Chain, token *Token, g Genesis) (*GenesisState, error) {
	for acc, balance := range g.Balances {
		chain.state.SetBalance(acc, balance)
	}
	for acc, amount := range g.Tokens {
		if err := token.Mint(acc, amount); err != nil {
			return nil, fmt.Errorf("genesis allocation to %s: %w", acc.Hex(), err)
		}
	}

	root, err := flush(chain.state, true)
	if err != nil {
		return nil, err
	}
	statedb, err := reopen(chain, root)
	if err != nil {
		return nil, err
	}
	chain.state, chain.root = statedb, root

	chain.log.Info("Applied fake genesis", "root", root, "accounts", len(g.Balances),
		"supply", token.TotalSupply(), "time", g.Time)
	return &GenesisState{
		Time:        g.Time,
		Root:        root,
		Accounts:    len(g.Balances),
		TokenSupply: token.TotalSupply(),
	}, nil
}

// MustApplyFakeGenesis is ApplyFakeGenesis for code paths where a broken
// genesis is unrecoverable.
func MustApplyFakeGenesis(chain *Chain, token *Token, g Genesis) *GenesisState {
	st, err := ApplyFakeGenesis(chain, token, g)
	if err != nil {
		log.Crit("ApplyFakeGenesis", "err", err)
	}
	return st
}

// FakeKey generates a deterministic private key: the same n always yields
// the same key. The key is keccak256 of n, which is a valid secp256k1 scalar
// for every n in practice.
func FakeKey(n int) *ecdsa.PrivateKey {
	key, err := crypto.ToECDSA(crypto.Keccak256(bigendian.Uint64ToBytes(uint64(n))))
	if err != nil {
		panic(err)
	}
	return key
}

// FakeAddress returns the address of FakeKey(n).
func FakeAddress(n int) common.Address {
	return crypto.PubkeyToAddress(FakeKey(n).PublicKey)
}
