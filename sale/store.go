package sale

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-crowdsale/inter"
)

// ErrConfigMismatch is returned when a data directory was created for a sale
// with different parameters.
var ErrConfigMismatch = errors.New("stored sale was created with a different config")

// Key layout:
//
//	c              -> config fingerprint (32 bytes)
//	t              -> total raised (rlp big.Int)
//	n              -> last receipt sequence (8 bytes, big-endian)
//	w + address    -> whitelist membership (present means true)
//	r + address    -> rlp(inter.ContributionRecord)
//	j + seq        -> rlp(inter.Receipt), seq big-endian so iteration is ordered
var (
	configKey       = []byte("c")
	raisedKey       = []byte("t")
	seqKey          = []byte("n")
	whitelistPrefix = []byte("w")
	recordPrefix    = []byte("r")
	receiptPrefix   = []byte("j")
)

// Store persists the sale state in a key-value database. Every mutating
// engine operation is written as a single batch, so the database never holds
// a half-applied contribution.
type Store struct {
	db  ethdb.KeyValueStore
	log log.Logger
}

// NewStore wraps an existing database.
func NewStore(db ethdb.KeyValueStore) *Store {
	return &Store{
		db:  db,
		log: log.New("module", "sale-store"),
	}
}

// NewMemStore returns a store backed by an in-memory database.
func NewMemStore() *Store {
	return NewStore(memorydb.New())
}

// OpenStore opens (or creates) a LevelDB store under dir.
func OpenStore(dir string, cacheMB, handles int) (*Store, error) {
	db, err := leveldb.New(dir, cacheMB, handles, "crowdsale/", false)
	if err != nil {
		return nil, fmt.Errorf("open sale store %s: %w", dir, err)
	}
	return NewStore(db), nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key []byte) ([]byte, bool, error) {
	has, err := s.db.Has(key)
	if err != nil || !has {
		return nil, false, err
	}
	v, err := s.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// BindConfig records the config fingerprint on first use and rejects any
// later attempt to reopen the store under a different one.
func (s *Store) BindConfig(h common.Hash) error {
	stored, ok, err := s.get(configKey)
	if err != nil {
		return err
	}
	if !ok {
		return s.db.Put(configKey, h.Bytes())
	}
	if !bytes.Equal(stored, h.Bytes()) {
		return fmt.Errorf("%w: have %x, want %s", ErrConfigMismatch, stored, h.Hex())
	}
	return nil
}

// load fills the in-memory components from the database and returns the last
// receipt sequence number.
func (s *Store) load(wl *Whitelist, ledger *ContributionLedger, cap *CapLedger) (uint64, error) {
	it := s.db.NewIterator(whitelistPrefix, nil)
	for it.Next() {
		wl.apply(common.BytesToAddress(it.Key()[len(whitelistPrefix):]), true)
	}
	err := it.Error()
	it.Release()
	if err != nil {
		return 0, fmt.Errorf("load whitelist: %w", err)
	}

	it = s.db.NewIterator(recordPrefix, nil)
	for it.Next() {
		var rec inter.ContributionRecord
		if err = rlp.DecodeBytes(it.Value(), &rec); err != nil {
			break
		}
		ledger.restore(common.BytesToAddress(it.Key()[len(recordPrefix):]), rec)
	}
	if err == nil {
		err = it.Error()
	}
	it.Release()
	if err != nil {
		return 0, fmt.Errorf("load contributions: %w", err)
	}

	if raw, ok, err := s.get(raisedKey); err != nil {
		return 0, err
	} else if ok {
		raised := new(big.Int)
		if err := rlp.DecodeBytes(raw, raised); err != nil {
			return 0, fmt.Errorf("load raised: %w", err)
		}
		cap.restore(raised)
	}

	raw, ok, err := s.get(seqKey)
	if err != nil || !ok {
		return 0, err
	}
	seq := bigendian.BytesToUint64(raw)
	s.log.Debug("Sale state loaded", "whitelisted", wl.Count(), "contributors", ledger.Len(), "raised", cap.Raised(), "receipts", seq)
	return seq, nil
}

// Receipt returns the receipt with the given sequence number, or nil.
func (s *Store) Receipt(seq uint64) (*inter.Receipt, error) {
	raw, ok, err := s.get(append(common.CopyBytes(receiptPrefix), bigendian.Uint64ToBytes(seq)...))
	if err != nil || !ok {
		return nil, err
	}
	r := new(inter.Receipt)
	if err := rlp.DecodeBytes(raw, r); err != nil {
		return nil, fmt.Errorf("decode receipt %d: %w", seq, err)
	}
	return r, nil
}

// Receipts returns up to limit receipts starting at sequence from, in commit
// order. A non-positive limit returns everything that is left.
func (s *Store) Receipts(from uint64, limit int) ([]*inter.Receipt, error) {
	it := s.db.NewIterator(receiptPrefix, bigendian.Uint64ToBytes(from))
	defer it.Release()

	var out []*inter.Receipt
	for it.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		r := new(inter.Receipt)
		if err := rlp.DecodeBytes(it.Value(), r); err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
		out = append(out, r)
	}
	return out, it.Error()
}

// storeBatch accumulates the writes of one engine operation.
type storeBatch struct {
	b   ethdb.Batch
	err error
}

func (s *Store) newBatch() *storeBatch {
	return &storeBatch{b: s.db.NewBatch()}
}

func (b *storeBatch) put(key []byte, val interface{}) {
	if b.err != nil {
		return
	}
	enc, err := rlp.EncodeToBytes(val)
	if err != nil {
		b.err = err
		return
	}
	b.err = b.b.Put(key, enc)
}

func (b *storeBatch) setWhitelisted(id common.Address, flag bool) {
	if b.err != nil {
		return
	}
	key := append(common.CopyBytes(whitelistPrefix), id.Bytes()...)
	if flag {
		b.err = b.b.Put(key, []byte{1})
	} else {
		b.err = b.b.Delete(key)
	}
}

func (b *storeBatch) putRecord(id common.Address, rec inter.ContributionRecord) {
	b.put(append(common.CopyBytes(recordPrefix), id.Bytes()...), &rec)
}

func (b *storeBatch) putRaised(raised *big.Int) {
	b.put(raisedKey, raised)
}

func (b *storeBatch) putReceipt(r *inter.Receipt) {
	b.put(append(common.CopyBytes(receiptPrefix), bigendian.Uint64ToBytes(r.Seq)...), r)
	if b.err == nil {
		b.err = b.b.Put(seqKey, bigendian.Uint64ToBytes(r.Seq))
	}
}

func (b *storeBatch) write() error {
	if b.err != nil {
		return b.err
	}
	return b.b.Write()
}
