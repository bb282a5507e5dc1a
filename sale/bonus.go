package sale

import (
	"math/big"
	"sort"

	"github.com/rony4d/go-opera-crowdsale/crowdsale"
)

// BonusScheduler turns a contribution amount into a token entitlement.
//
// The schedule is evaluated per call: a contributor's earlier contributions
// never promote a later one into a higher tier.
type BonusScheduler struct {
	rate  *big.Int
	tiers []crowdsale.BonusTier
}

// NewBonusScheduler builds a scheduler from validated sale parameters.
// Tiers must already be ordered by strictly increasing threshold.
func NewBonusScheduler(rate *big.Int, tiers []crowdsale.BonusTier) *BonusScheduler {
	s := &BonusScheduler{
		rate:  new(big.Int).Set(rate),
		tiers: make([]crowdsale.BonusTier, len(tiers)),
	}
	for i, tier := range tiers {
		s.tiers[i] = crowdsale.BonusTier{
			Threshold:  new(big.Int).Set(tier.Threshold),
			Multiplier: tier.Multiplier,
		}
	}
	return s
}

// MultiplierFor returns the multiplier of the highest threshold not exceeding
// amount, or NoBonus when amount is below every threshold.
func (s *BonusScheduler) MultiplierFor(amount *big.Int) crowdsale.Multiplier {
	// index of the first tier whose threshold is above amount
	i := sort.Search(len(s.tiers), func(i int) bool {
		return s.tiers[i].Threshold.Cmp(amount) > 0
	})
	if i == 0 {
		return crowdsale.NoBonus
	}
	return s.tiers[i-1].Multiplier
}

// TokensFor computes floor(amount * rate * multiplier) and returns it along
// with the multiplier that was applied.
func (s *BonusScheduler) TokensFor(amount *big.Int) (*big.Int, crowdsale.Multiplier, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, 0, ErrInvalidAmount.with(zeroAddr, amount)
	}
	mult := s.MultiplierFor(amount)
	tokens, ok := safeMulDiv(amount, s.rate, uint64(mult), crowdsale.MultiplierUnit)
	if !ok {
		return nil, 0, ErrOverflow.with(zeroAddr, amount)
	}
	return tokens, mult, nil
}
