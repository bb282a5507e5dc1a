package sale

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Amounts cross the package boundary as *big.Int and are converted to 256-bit
// words for arithmetic. Every helper here fails instead of wrapping around.

// toWord converts a non-negative *big.Int into a 256-bit word.
func toWord(x *big.Int) (*uint256.Int, bool) {
	if x == nil {
		return new(uint256.Int), true
	}
	if x.Sign() < 0 {
		return nil, false
	}
	w, overflow := uint256.FromBig(x)
	if overflow {
		return nil, false
	}
	return w, true
}

// safeAdd returns a+b, or false when the sum does not fit 256 bits.
func safeAdd(a, b *big.Int) (*big.Int, bool) {
	x, ok := toWord(a)
	if !ok {
		return nil, false
	}
	y, ok := toWord(b)
	if !ok {
		return nil, false
	}
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, false
	}
	return sum.ToBig(), true
}

// safeSub returns a-b, or false when b > a.
func safeSub(a, b *big.Int) (*big.Int, bool) {
	x, ok := toWord(a)
	if !ok {
		return nil, false
	}
	y, ok := toWord(b)
	if !ok {
		return nil, false
	}
	diff, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, false
	}
	return diff.ToBig(), true
}

// safeMulDiv returns floor(a*b*c/d). The intermediate product must itself fit
// 256 bits; d must be positive.
func safeMulDiv(a, b *big.Int, c uint64, d uint64) (*big.Int, bool) {
	if d == 0 {
		return nil, false
	}
	x, ok := toWord(a)
	if !ok {
		return nil, false
	}
	y, ok := toWord(b)
	if !ok {
		return nil, false
	}
	prod, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, false
	}
	prod, overflow = new(uint256.Int).MulOverflow(prod, uint256.NewInt(c))
	if overflow {
		return nil, false
	}
	return new(uint256.Int).Div(prod, uint256.NewInt(d)).ToBig(), true
}
