package crowdsale

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-crowdsale/inter"
)

var (
	testAdmin  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testWallet = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testSale   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	testToken  = common.HexToAddress("0x00000000000000000000000000000000000000d4")
)

func boundFake() Config {
	return FakeRules(inter.FromUnix(100), inter.FromUnix(200)).
		WithParties(testAdmin, testWallet, testSale, testToken)
}

// TestPresetsValidate verifies every shipped preset is valid once parties are bound.
func TestPresetsValidate(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			cfg, err := RulesByName(name, inter.FromUnix(100), inter.FromUnix(200))
			require.NoError(t, err)
			require.Equal(t, name, cfg.Name)

			// unbound presets are rejected
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

			cfg = cfg.WithParties(testAdmin, testWallet, testSale, testToken)
			require.NoError(t, cfg.Validate())
		})
	}

	_, err := RulesByName("mainnet", 0, 1)
	require.Error(t, err)
}

// TestBitGuildRules cross-checks the canonical parameterisation against the
// figures the original sale published.
func TestBitGuildRules(t *testing.T) {
	require := require.New(t)
	cfg := BitGuildRules(inter.FromUnix(1), inter.FromUnix(2))

	require.Equal(big.NewInt(80000), cfg.Rate)
	require.Equal(ether(2500, 1), cfg.Cap)
	require.Equal(MustParseMultiplier("1.025"), cfg.Bonus[0].Multiplier)
	require.Equal(ether(15, 1), cfg.Bonus[0].Threshold)
	require.Equal(MustParseMultiplier("1.1"), cfg.MaxMultiplier())

	// cap * rate * 1.1
	want := new(big.Int).Mul(ether(2500, 1), big.NewInt(88000))
	require.Equal(0, want.Cmp(cfg.MaxTokenAllocation()), "allocation %s, want %s", cfg.MaxTokenAllocation(), want)
}

// TestValidate covers each rejected shape of config.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"start equals end", func(c *Config) { c.EndTime = c.StartTime }},
		{"start after end", func(c *Config) { c.StartTime = c.EndTime + 1 }},
		{"nil rate", func(c *Config) { c.Rate = nil }},
		{"zero rate", func(c *Config) { c.Rate = new(big.Int) }},
		{"negative cap", func(c *Config) { c.Cap = big.NewInt(-1) }},
		{"unsorted tiers", func(c *Config) { c.Bonus[0], c.Bonus[1] = c.Bonus[1], c.Bonus[0] }},
		{"duplicate threshold", func(c *Config) { c.Bonus[1].Threshold = new(big.Int).Set(c.Bonus[0].Threshold) }},
		{"zero threshold", func(c *Config) { c.Bonus[0].Threshold = new(big.Int) }},
		{"multiplier below one", func(c *Config) { c.Bonus[0].Multiplier = NoBonus - 1 }},
		{"missing wallet", func(c *Config) { c.Wallet = common.Address{} }},
		{"missing admin", func(c *Config) { c.Admin = common.Address{} }},
		{"sale is wallet", func(c *Config) { c.Sale = c.Wallet }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := boundFake()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}

	// no tiers at all is a valid flat-rate sale
	flat := boundFake()
	flat.Bonus = nil
	require.NoError(t, flat.Validate())
	require.Equal(t, NoBonus, flat.MaxMultiplier())
}

// TestCopyIsDeep ensures Copy never shares *big.Int state with the original.
func TestCopyIsDeep(t *testing.T) {
	cfg := boundFake()
	cp := cfg.Copy()

	cp.Rate.SetInt64(999)
	cp.Cap.SetInt64(1)
	cp.Bonus[0].Threshold.SetInt64(1)
	cp.Bonus[0].Multiplier = NoBonus

	require.Equal(t, big.NewInt(10), cfg.Rate)
	require.Equal(t, big.NewInt(1000), cfg.Cap)
	require.Equal(t, big.NewInt(100), cfg.Bonus[0].Threshold)
	require.Equal(t, MustParseMultiplier("1.5"), cfg.Bonus[0].Multiplier)
}

// TestHash verifies the fingerprint is stable and parameter-sensitive.
func TestHash(t *testing.T) {
	a := boundFake()
	b := boundFake()
	require.Equal(t, a.Hash(), b.Hash())

	b.Cap = big.NewInt(1001)
	require.NotEqual(t, a.Hash(), b.Hash())

	c := boundFake()
	c.Bonus[1].Multiplier++
	require.NotEqual(t, a.Hash(), c.Hash())
}

func TestStringIsJSON(t *testing.T) {
	s := boundFake().String()
	require.Contains(t, s, `"Name":"fake"`)
	require.Contains(t, s, `"Multiplier":"1.5"`)
}
