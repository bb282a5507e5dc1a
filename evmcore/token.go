package evmcore

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Storage layout of the token account, compatible with a Solidity contract
// declaring `mapping(address => uint256) balances; uint256 totalSupply;`.
var (
	balancesSlot    = common.Hash{}                   // slot 0
	totalSupplySlot = common.BigToHash(big.NewInt(1)) // slot 1
)

// ErrSupplyOverflow is returned when minting would push a balance or the
// supply past 256 bits.
var ErrSupplyOverflow = errors.New("token supply overflow")

// Token is a fungible token stored in the contract storage of its address.
type Token struct {
	chain *Chain
	addr  common.Address
}

// NewToken binds a token to addr on chain. The account gets a non-zero nonce
// so it is never pruned as empty when the state is committed.
func NewToken(chain *Chain, addr common.Address) *Token {
	if chain.state.GetNonce(addr) == 0 {
		chain.state.SetNonce(addr, 1)
	}
	return &Token{chain: chain, addr: addr}
}

// balanceSlot returns keccak256(holder . slot), the mapping entry of holder.
func balanceSlot(holder common.Address) common.Hash {
	return crypto.Keccak256Hash(common.LeftPadBytes(holder.Bytes(), 32), balancesSlot.Bytes())
}

// Address returns the token account.
func (t *Token) Address() common.Address {
	return t.addr
}

func (t *Token) get(slot common.Hash) *big.Int {
	return t.chain.state.GetState(t.addr, slot).Big()
}

func (t *Token) set(slot common.Hash, v *big.Int) {
	t.chain.state.SetState(t.addr, slot, common.BigToHash(v))
}

// BalanceOf returns the token units held by holder.
func (t *Token) BalanceOf(holder common.Address) *big.Int {
	return t.get(balanceSlot(holder))
}

// TotalSupply returns the number of token units in existence.
func (t *Token) TotalSupply() *big.Int {
	return t.get(totalSupplySlot)
}

// Transfer moves amount units between holders.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative token amount %s", amount)
	}
	fromBal := t.BalanceOf(from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s tokens, needs %s", ErrInsufficientBalance, from.Hex(), fromBal, amount)
	}
	if from == to {
		return nil
	}
	t.set(balanceSlot(from), fromBal.Sub(fromBal, amount))
	toBal := t.BalanceOf(to)
	t.set(balanceSlot(to), toBal.Add(toBal, amount))
	return nil
}

// Mint creates amount new units for to. Only genesis allocation uses it:
// the sale itself never mints.
func (t *Token) Mint(to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative mint amount %s", amount)
	}
	supply := new(big.Int).Add(t.TotalSupply(), amount)
	if supply.BitLen() > 256 {
		return ErrSupplyOverflow
	}
	bal := t.BalanceOf(to)
	t.set(balanceSlot(to), bal.Add(bal, amount))
	t.set(totalSupplySlot, supply)
	return nil
}
