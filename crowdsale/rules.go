// Package crowdsale defines the immutable parameters of a token sale.
//
// This package provides:
//   - The Config type (window, rate, bonus tiers, cap and the parties involved)
//   - Validation of a Config before an engine is allowed to run on it
//   - Named presets for the bonus schedules observed in production
//
// A Config is handed to the sale engine once at construction and is never
// mutated afterwards. Callers that need a variant must Copy() it first.

package crowdsale

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/rony4d/go-opera-crowdsale/inter"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid sale config")

// BonusTier is a (threshold, multiplier) pair: contributions of at least
// Threshold wei earn Multiplier on their token entitlement.
type BonusTier struct {
	Threshold  *big.Int
	Multiplier Multiplier
}

// Config describes the complete configuration of a single sale.
//
// Note: Config holds *big.Int fields. Use Copy() before modifying a Config
// that is shared with a running engine.
type Config struct {
	// Name identifies the parameterisation in logs and metrics.
	Name string

	// Sale window, half-open: contributions are accepted in [StartTime, EndTime).
	StartTime inter.Timestamp
	EndTime   inter.Timestamp

	// Rate is the number of token units granted per wei before bonus.
	Rate *big.Int

	// Bonus is ordered by strictly increasing Threshold.
	Bonus []BonusTier

	// Cap is the maximum cumulative wei the sale accepts.
	Cap *big.Int

	// Wallet receives every accepted contribution.
	Wallet common.Address

	// Admin is the only identity allowed to edit the whitelist.
	Admin common.Address

	// Sale is the sale's own account on the host ledger. It receives value
	// in flight and holds the pre-funded token allocation.
	Sale common.Address

	// Token is the address of the token being sold.
	Token common.Address
}

// Validate checks every structural invariant of the config.
func (c Config) Validate() error {
	if c.StartTime >= c.EndTime {
		return fmt.Errorf("%w: start %d must be before end %d", ErrInvalidConfig, c.StartTime, c.EndTime)
	}
	if c.Rate == nil || c.Rate.Sign() <= 0 {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidConfig)
	}
	if c.Cap == nil || c.Cap.Sign() <= 0 {
		return fmt.Errorf("%w: cap must be positive", ErrInvalidConfig)
	}
	var prev *big.Int
	for i, tier := range c.Bonus {
		if tier.Threshold == nil || tier.Threshold.Sign() <= 0 {
			return fmt.Errorf("%w: bonus tier %d has no positive threshold", ErrInvalidConfig, i)
		}
		if prev != nil && tier.Threshold.Cmp(prev) <= 0 {
			return fmt.Errorf("%w: bonus thresholds must be strictly increasing (tier %d)", ErrInvalidConfig, i)
		}
		if tier.Multiplier < NoBonus {
			return fmt.Errorf("%w: bonus tier %d multiplier %s below 1.0", ErrInvalidConfig, i, tier.Multiplier)
		}
		prev = tier.Threshold
	}
	zero := common.Address{}
	for name, addr := range map[string]common.Address{
		"wallet": c.Wallet,
		"admin":  c.Admin,
		"sale":   c.Sale,
		"token":  c.Token,
	} {
		if addr == zero {
			return fmt.Errorf("%w: %s address not set", ErrInvalidConfig, name)
		}
	}
	if c.Sale == c.Wallet {
		return fmt.Errorf("%w: sale account cannot double as the wallet", ErrInvalidConfig)
	}
	return nil
}

// MaxMultiplier returns the largest multiplier any contribution can earn.
func (c Config) MaxMultiplier() Multiplier {
	max := NoBonus
	for _, tier := range c.Bonus {
		if tier.Multiplier > max {
			max = tier.Multiplier
		}
	}
	return max
}

// MaxTokenAllocation is the number of token units the sale must hold to
// honour every contribution up to the cap at the best bonus:
// floor(cap * rate * maxMultiplier).
func (c Config) MaxTokenAllocation() *big.Int {
	out := new(big.Int).Mul(c.Cap, c.Rate)
	out.Mul(out, c.MaxMultiplier().Big())
	return out.Quo(out, big.NewInt(MultiplierUnit))
}

// WithParties returns a copy of the config bound to the given accounts.
func (c Config) WithParties(admin, wallet, sale, token common.Address) Config {
	cp := c.Copy()
	cp.Admin = admin
	cp.Wallet = wallet
	cp.Sale = sale
	cp.Token = token
	return cp
}

// Copy creates a deep copy of the config.
func (c Config) Copy() Config {
	cp := c
	if c.Rate != nil {
		cp.Rate = new(big.Int).Set(c.Rate)
	}
	if c.Cap != nil {
		cp.Cap = new(big.Int).Set(c.Cap)
	}
	cp.Bonus = make([]BonusTier, len(c.Bonus))
	for i, tier := range c.Bonus {
		cp.Bonus[i] = BonusTier{Multiplier: tier.Multiplier}
		if tier.Threshold != nil {
			cp.Bonus[i].Threshold = new(big.Int).Set(tier.Threshold)
		}
	}
	return cp
}

// Hash fingerprints the config. The persistent store keeps it so a data
// directory can never be reopened under different sale parameters.
func (c Config) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes(&c)
	if err != nil {
		// every field of Config is RLP-encodable
		panic(fmt.Errorf("encode sale config: %w", err))
	}
	return crypto.Keccak256Hash(enc)
}

// String returns a JSON representation for logging.
func (c Config) String() string {
	b, _ := json.Marshal(&c)
	return string(b)
}
