// Package integration wires the sale together: it binds a named rule preset
// to concrete parties, builds the host chain and token, opens the sale store
// and hands back a ready engine.
//
// Usage:
//
//	cfg, err := integration.GetPresetByName("bitguild", start, end)
//	s, err := integration.Assemble(integration.Options{Rules: cfg, Contributors: 3})
//	defer s.Close()
//	s.Engine.WhitelistAddress(cfg.Admin, []common.Address{integration.Contributor(0)}, true)
package integration

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-crowdsale/crowdsale"
	"github.com/rony4d/go-opera-crowdsale/evmcore"
	"github.com/rony4d/go-opera-crowdsale/inter"
)

// Fake key indexes of the sale parties. Contributors start at
// FirstContributorKey so they never collide with a party.
const (
	AdminKey  = 0
	WalletKey = 1
	SaleKey   = 2
	TokenKey  = 3

	FirstContributorKey = 10
)

// Parties returns the deterministic admin, wallet, sale and token addresses
// used by fake sales.
func Parties() (admin, wallet, saleAddr, token common.Address) {
	return evmcore.FakeAddress(AdminKey), evmcore.FakeAddress(WalletKey),
		evmcore.FakeAddress(SaleKey), evmcore.FakeAddress(TokenKey)
}

// Contributor returns the address of the i-th fake contributor.
func Contributor(i int) common.Address {
	return evmcore.FakeAddress(FirstContributorKey + i)
}

// GetPresetByName looks up a rule preset and binds it to the fake parties.
// This backs the --preset flag.
//
// Example:
//
//	cfg, err := integration.GetPresetByName("bitguild", start, end)
//	if err != nil {
//	    log.Fatal(err)
//	}
func GetPresetByName(name string, start, end inter.Timestamp) (crowdsale.Config, error) {
	cfg, err := crowdsale.RulesByName(name, start, end)
	if err != nil {
		return crowdsale.Config{}, err
	}
	admin, wallet, saleAddr, token := Parties()
	return cfg.WithParties(admin, wallet, saleAddr, token), nil
}

// ApplyParties overrides the parties of cfg with every non-zero address
// given. Parties left zero keep their current value.
func ApplyParties(cfg *crowdsale.Config, admin, wallet common.Address) {
	if admin != (common.Address{}) {
		cfg.Admin = admin
	}
	if wallet != (common.Address{}) {
		cfg.Wallet = wallet
	}
}
