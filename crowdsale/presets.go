package crowdsale

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/params"
	"github.com/rony4d/go-opera-crowdsale/inter"
)

// Preset names accepted by RulesByName.
const (
	BitGuildPreset  = "bitguild"
	EarlyBirdPreset = "earlybird"
	FakePreset      = "fake"
)

// ether converts a whole-or-fractional ether amount given as n/d into wei.
func ether(n, d int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
	return v.Quo(v, big.NewInt(d))
}

// BitGuildRules returns the canonical BitGuild parameterisation:
//   - 80000 token units per wei
//   - 2500 ether hard cap
//   - 1.025x from 15 ether up to a 1.1x maximum
//
// Parties are left unset; bind them with WithParties.
func BitGuildRules(start, end inter.Timestamp) Config {
	return Config{
		Name:      BitGuildPreset,
		StartTime: start,
		EndTime:   end,
		Rate:      big.NewInt(80000),
		Cap:       ether(2500, 1),
		Bonus: []BonusTier{
			{Threshold: ether(15, 1), Multiplier: MustParseMultiplier("1.025")},
			{Threshold: ether(50, 1), Multiplier: MustParseMultiplier("1.05")},
			{Threshold: ether(100, 1), Multiplier: MustParseMultiplier("1.075")},
			{Threshold: ether(300, 1), Multiplier: MustParseMultiplier("1.1")},
		},
	}
}

// EarlyBirdRules returns the second observed schedule: a lower rate, a
// smaller cap and steeper tiers topping out at 1.2x.
func EarlyBirdRules(start, end inter.Timestamp) Config {
	return Config{
		Name:      EarlyBirdPreset,
		StartTime: start,
		EndTime:   end,
		Rate:      big.NewInt(60000),
		Cap:       ether(1000, 1),
		Bonus: []BonusTier{
			{Threshold: ether(1, 2), Multiplier: MustParseMultiplier("1.05")},
			{Threshold: ether(10, 1), Multiplier: MustParseMultiplier("1.1")},
			{Threshold: ether(50, 1), Multiplier: MustParseMultiplier("1.2")},
		},
	}
}

// FakeRules returns a small-number schedule for local experiments and
// tests: amounts are plain wei so expectations stay readable.
func FakeRules(start, end inter.Timestamp) Config {
	return Config{
		Name:      FakePreset,
		StartTime: start,
		EndTime:   end,
		Rate:      big.NewInt(10),
		Cap:       big.NewInt(1000),
		Bonus: []BonusTier{
			{Threshold: big.NewInt(100), Multiplier: MustParseMultiplier("1.5")},
			{Threshold: big.NewInt(500), Multiplier: MustParseMultiplier("2")},
		},
	}
}

var presets = map[string]func(start, end inter.Timestamp) Config{
	BitGuildPreset:  BitGuildRules,
	EarlyBirdPreset: EarlyBirdRules,
	FakePreset:      FakeRules,
}

// PresetNames lists the known presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RulesByName looks up a preset by its identifier. This backs the
// --preset launcher flag.
func RulesByName(name string, start, end inter.Timestamp) (Config, error) {
	build, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown preset: %q (valid: %v)", name, PresetNames())
	}
	return build(start, end), nil
}
