package sale

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-crowdsale/inter"
)

func TestStoreBindConfig(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	h := common.HexToHash("0x01")
	require.NoError(t, s.BindConfig(h))
	require.NoError(t, s.BindConfig(h))

	err := s.BindConfig(common.HexToHash("0x02"))
	require.ErrorIs(t, err, ErrConfigMismatch)
}

func TestStoreRoundTrip(t *testing.T) {
	require := require.New(t)
	s := NewMemStore()
	defer s.Close()

	b := s.newBatch()
	b.setWhitelisted(alice, true)
	b.setWhitelisted(bob, true)
	b.putRecord(alice, inter.ContributionRecord{Value: big.NewInt(120), Tokens: big.NewInt(1800)})
	b.putRaised(big.NewInt(120))
	b.putReceipt(&inter.Receipt{
		Seq:        1,
		Sender:     alice,
		Value:      big.NewInt(120),
		Multiplier: 1500000,
		Tokens:     big.NewInt(1800),
		Raised:     big.NewInt(120),
		Time:       inter.FromUnix(150),
	})
	require.NoError(b.write())

	// removal is a delete
	b = s.newBatch()
	b.setWhitelisted(bob, false)
	require.NoError(b.write())

	wl := NewWhitelist(admin)
	ledger := NewContributionLedger()
	cap := NewCapLedger(big.NewInt(1000))
	seq, err := s.load(wl, ledger, cap)
	require.NoError(err)

	require.Equal(uint64(1), seq)
	require.True(wl.IsWhitelisted(alice))
	require.False(wl.IsWhitelisted(bob))
	require.Equal(1, wl.Count())
	requireBig(t, 120, ledger.ContributionOf(alice))
	requireBig(t, 1800, ledger.TokensOf(alice))
	requireBig(t, 120, cap.Raised())
	requireBig(t, 880, cap.Remaining())

	r, err := s.Receipt(1)
	require.NoError(err)
	require.NotNil(r)
	require.Equal(alice, r.Sender)
	require.Equal(uint64(1500000), r.Multiplier)
	require.Equal(inter.FromUnix(150), r.Time)

	missing, err := s.Receipt(2)
	require.NoError(err)
	require.Nil(missing)
}

func TestStoreLoadEmpty(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	wl := NewWhitelist(admin)
	ledger := NewContributionLedger()
	cap := NewCapLedger(big.NewInt(1000))
	seq, err := s.load(wl, ledger, cap)
	require.NoError(t, err)
	require.Zero(t, seq)
	require.Zero(t, wl.Count())
	require.Zero(t, ledger.Len())
	requireBig(t, 0, cap.Raised())
}

func TestStoreReceiptsOrder(t *testing.T) {
	require := require.New(t)
	s := NewMemStore()
	defer s.Close()

	// sequence numbers past 255 must still sort after the small ones
	seqs := []uint64{300, 1, 2, 256, 3}
	for _, seq := range seqs {
		b := s.newBatch()
		b.putReceipt(&inter.Receipt{Seq: seq, Value: big.NewInt(1), Tokens: big.NewInt(10), Raised: big.NewInt(int64(seq))})
		require.NoError(b.write())
	}

	all, err := s.Receipts(0, 0)
	require.NoError(err)
	got := make([]uint64, len(all))
	for i, r := range all {
		got[i] = r.Seq
	}
	require.Equal([]uint64{1, 2, 3, 256, 300}, got)

	page, err := s.Receipts(3, 2)
	require.NoError(err)
	require.Len(page, 2)
	require.Equal(uint64(3), page[0].Seq)
	require.Equal(uint64(256), page[1].Seq)
}

func TestStoreBatchError(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	b := s.newBatch()
	b.put([]byte("x"), func() {})
	b.setWhitelisted(alice, true)
	require.Error(t, b.write())

	ok, err := s.db.Has(append(common.CopyBytes(whitelistPrefix), alice.Bytes()...))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenStore(t *testing.T) {
	require := require.New(t)
	dir := filepath.Join(t.TempDir(), "saledata")

	s, err := OpenStore(dir, 16, 16)
	require.NoError(err)
	require.NoError(s.BindConfig(common.HexToHash("0xaa")))
	b := s.newBatch()
	b.setWhitelisted(carol, true)
	require.NoError(b.write())
	require.NoError(s.Close())

	s, err = OpenStore(dir, 16, 16)
	require.NoError(err)
	defer s.Close()
	require.ErrorIs(s.BindConfig(common.HexToHash("0xbb")), ErrConfigMismatch)

	wl := NewWhitelist(admin)
	_, err = s.load(wl, NewContributionLedger(), NewCapLedger(big.NewInt(1)))
	require.NoError(err)
	require.True(wl.IsWhitelisted(carol))
}
