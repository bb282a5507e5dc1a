package sale

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-crowdsale/crowdsale"
	"github.com/rony4d/go-opera-crowdsale/inter"
)

func TestWindowStatus(t *testing.T) {
	w := Window{Start: startTime, End: endTime}

	tests := []struct {
		name string
		now  inter.Timestamp
		want Lifecycle
	}{
		{"long before", 0, Pending},
		{"just before start", startTime - 1, Pending},
		{"at start", startTime, Open},
		{"middle", startTime.Add(50 * time.Second), Open},
		{"just before end", endTime - 1, Open},
		{"at end", endTime, Closed},
		{"after end", endTime.Add(time.Hour), Closed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, w.Status(tt.now))
			require.Equal(t, tt.want == Open, w.IsOpen(tt.now))
		})
	}
	require.Equal(t, "pending", Pending.String())
	require.Equal(t, "closed", Closed.String())
}

func TestWhitelist(t *testing.T) {
	require := require.New(t)
	wl := NewWhitelist(admin)

	require.False(wl.IsWhitelisted(alice))
	require.Equal(0, wl.Count())

	// non-admin batch changes nothing
	changed, err := wl.Set(alice, []common.Address{alice, bob}, true)
	require.ErrorIs(err, ErrUnauthorized)
	require.Nil(changed)
	require.False(wl.IsWhitelisted(alice))
	require.Equal(0, wl.Count())

	// duplicates inside a batch count once
	changed, err = wl.Set(admin, []common.Address{alice, bob, alice}, true)
	require.NoError(err)
	require.Equal([]common.Address{alice, bob}, changed)
	require.True(wl.IsWhitelisted(alice))
	require.True(wl.IsWhitelisted(bob))
	require.Equal(2, wl.Count())

	// re-flagging is a no-op, only carol is new
	changed, err = wl.Set(admin, []common.Address{alice, carol}, true)
	require.NoError(err)
	require.Equal([]common.Address{carol}, changed)
	require.Equal(3, wl.Count())

	changed, err = wl.Set(admin, []common.Address{bob, bob}, false)
	require.NoError(err)
	require.Len(changed, 1)
	require.False(wl.IsWhitelisted(bob))
	require.Equal(2, wl.Count())
	require.ElementsMatch([]common.Address{alice, carol}, wl.Members())

	// removing an unknown identity is harmless
	changed, err = wl.Set(admin, []common.Address{wallet}, false)
	require.NoError(err)
	require.Empty(changed)
	require.Equal(2, wl.Count())
}

func TestBonusScheduler(t *testing.T) {
	cfg := testRules()
	s := NewBonusScheduler(cfg.Rate, cfg.Bonus)

	tests := []struct {
		amount int64
		mult   string
		tokens int64
	}{
		{1, "1.0", 10},
		{99, "1.0", 990},
		{100, "1.5", 1500},
		{101, "1.5", 1515},
		{499, "1.5", 7485},
		{500, "2.0", 10000},
		{1000, "2.0", 20000},
	}
	for _, tt := range tests {
		amount := big.NewInt(tt.amount)
		require.Equal(t, tt.mult, s.MultiplierFor(amount).String(), "amount %d", tt.amount)

		tokens, mult, err := s.TokensFor(amount)
		require.NoError(t, err)
		require.Equal(t, tt.mult, mult.String())
		requireBig(t, tt.tokens, tokens, "amount %d", tt.amount)
	}

	// the configured tiers are copied, not shared
	cfg.Bonus[0].Multiplier = crowdsale.NoBonus
	require.Equal(t, "1.5", s.MultiplierFor(big.NewInt(100)).String())
}

// TestBonusFloor checks fractional token units are truncated, never rounded.
func TestBonusFloor(t *testing.T) {
	s := NewBonusScheduler(big.NewInt(1), []crowdsale.BonusTier{
		{Threshold: big.NewInt(1), Multiplier: crowdsale.MustParseMultiplier("1.025")},
	})
	tokens, _, err := s.TokensFor(big.NewInt(3)) // 3.075
	require.NoError(t, err)
	requireBig(t, 3, tokens)

	tokens, _, err = s.TokensFor(big.NewInt(39)) // 39.975
	require.NoError(t, err)
	requireBig(t, 39, tokens)

	tokens, _, err = s.TokensFor(big.NewInt(40)) // 41.0
	require.NoError(t, err)
	requireBig(t, 41, tokens)
}

func TestBonusSchedulerRejects(t *testing.T) {
	cfg := testRules()
	s := NewBonusScheduler(cfg.Rate, cfg.Bonus)

	_, _, err := s.TokensFor(new(big.Int))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = s.TokensFor(big.NewInt(-5))
	require.ErrorIs(t, err, ErrInvalidAmount)

	huge := new(big.Int).Lsh(big.NewInt(1), 255)
	_, _, err = s.TokensFor(huge)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestCapLedger(t *testing.T) {
	require := require.New(t)
	c := NewCapLedger(big.NewInt(1000))

	require.NoError(c.TryReserve(big.NewInt(600)))
	requireBig(t, 400, c.Remaining())

	// one over the headroom is rejected whole
	err := c.TryReserve(big.NewInt(401))
	require.ErrorIs(err, ErrCapExceeded)
	requireBig(t, 600, c.Raised())

	// exactly the headroom fills the cap
	require.NoError(c.TryReserve(big.NewInt(400)))
	requireBig(t, 1000, c.Raised())
	requireBig(t, 0, c.Remaining())

	require.ErrorIs(c.TryReserve(big.NewInt(1)), ErrCapExceeded)

	c.release(big.NewInt(400))
	requireBig(t, 600, c.Raised())
	require.Panics(func() { c.release(big.NewInt(601)) })

	// returned values are copies
	c.Raised().SetInt64(0)
	c.Cap().SetInt64(0)
	requireBig(t, 600, c.Raised())
	requireBig(t, 1000, c.Cap())
}

func TestContributionLedger(t *testing.T) {
	require := require.New(t)
	l := NewContributionLedger()

	requireBig(t, 0, l.ContributionOf(alice))
	require.Equal(0, l.Len())

	prev, existed, err := l.Record(alice, big.NewInt(100), big.NewInt(1500))
	require.NoError(err)
	require.False(existed)
	requireBig(t, 0, prev.Value)

	prev, existed, err = l.Record(alice, big.NewInt(50), big.NewInt(500))
	require.NoError(err)
	require.True(existed)
	requireBig(t, 100, prev.Value)
	requireBig(t, 150, l.ContributionOf(alice))
	requireBig(t, 2000, l.TokensOf(alice))

	// undo the second record
	l.revert(alice, prev, existed)
	requireBig(t, 100, l.ContributionOf(alice))
	requireBig(t, 1500, l.TokensOf(alice))

	// mutating a read result never reaches the ledger
	l.ContributionOf(alice).SetInt64(7)
	requireBig(t, 100, l.ContributionOf(alice))

	// an overflowing record leaves the totals alone
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	_, _, err = l.Record(alice, max, big.NewInt(1))
	require.ErrorIs(err, ErrOverflow)
	requireBig(t, 100, l.ContributionOf(alice))
	require.Equal(1, l.Len())
}

func TestSafeMath(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	_, ok := safeAdd(max, big.NewInt(1))
	require.False(t, ok)
	sum, ok := safeAdd(max, nil)
	require.True(t, ok)
	require.Equal(t, max.String(), sum.String())

	_, ok = safeSub(big.NewInt(1), big.NewInt(2))
	require.False(t, ok)

	_, ok = safeMulDiv(max, big.NewInt(2), 1, 1)
	require.False(t, ok)
	_, ok = safeMulDiv(big.NewInt(1), big.NewInt(1), 1, 0)
	require.False(t, ok)
	got, ok := safeMulDiv(big.NewInt(7), big.NewInt(3), 1500000, 1000000)
	require.True(t, ok)
	requireBig(t, 31, got) // 31.5

	_, ok = toWord(big.NewInt(-1))
	require.False(t, ok)
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(startTime)
	require.Equal(t, startTime, c.Now())
	require.Equal(t, startTime.Add(time.Second), c.Advance(time.Second))
	c.Set(endTime)
	require.Equal(t, endTime, c.Now())
}
