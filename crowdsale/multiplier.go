package crowdsale

import (
	"fmt"
	"math/big"
	"strings"
)

// MultiplierUnit is the fixed-point scale of a Multiplier: one whole unit
// (no bonus) is represented as 1_000_000, so six decimal places survive.
const MultiplierUnit = 1000000

// NoBonus is the multiplier applied below the lowest tier threshold.
const NoBonus Multiplier = MultiplierUnit

// Multiplier is a bonus factor stored as parts-per-million.
// 1.025x is Multiplier(1025000). Token arithmetic never goes through
// floating point: the engine multiplies by the raw value and divides by
// MultiplierUnit at the very end.
type Multiplier uint64

// ParseMultiplier parses a decimal factor such as "1.1" or "1.025".
// Factors below 1.0 and factors with more precision than MultiplierUnit can
// hold are rejected rather than rounded.
func ParseMultiplier(s string) (Multiplier, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return 0, fmt.Errorf("invalid multiplier %q", s)
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt64(MultiplierUnit))
	if !scaled.IsInt() {
		return 0, fmt.Errorf("multiplier %q exceeds %d decimal places", s, 6)
	}
	n := scaled.Num()
	if n.Cmp(big.NewInt(MultiplierUnit)) < 0 {
		return 0, fmt.Errorf("multiplier %q is below 1.0", s)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("multiplier %q out of range", s)
	}
	return Multiplier(n.Uint64()), nil
}

// MustParseMultiplier is ParseMultiplier for package-level presets.
func MustParseMultiplier(s string) Multiplier {
	m, err := ParseMultiplier(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Big returns the raw fixed-point value.
func (m Multiplier) Big() *big.Int {
	return new(big.Int).SetUint64(uint64(m))
}

// String renders the factor in decimal form with trailing zeros removed.
func (m Multiplier) String() string {
	whole := uint64(m) / MultiplierUnit
	frac := uint64(m) % MultiplierUnit
	if frac == 0 {
		return fmt.Sprintf("%d.0", whole)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%06d", whole, frac), "0")
}

// MarshalText encodes the factor as its decimal string.
func (m Multiplier) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes the decimal string form.
func (m *Multiplier) UnmarshalText(text []byte) error {
	v, err := ParseMultiplier(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
