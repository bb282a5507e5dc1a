package sale

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reason categorises why an operation was rejected.
type Reason string

const (
	// ReasonUnauthorized: a non-admin invoked an admin-only operation.
	ReasonUnauthorized Reason = "UNAUTHORIZED"

	// ReasonNotOpen: the contribution arrived outside [start, end).
	ReasonNotOpen Reason = "NOT_OPEN"

	// ReasonNotWhitelisted: the sender is not eligible.
	ReasonNotWhitelisted Reason = "NOT_WHITELISTED"

	// ReasonCapExceeded: accepting the contribution would breach the cap.
	ReasonCapExceeded Reason = "CAP_EXCEEDED"

	// ReasonInsufficientSaleTokenBalance: the sale cannot pay out the tokens
	// it owes. This is an operational fault, not a user error.
	ReasonInsufficientSaleTokenBalance Reason = "INSUFFICIENT_SALE_TOKEN_BALANCE"

	// ReasonInvalidAmount: zero or negative contribution.
	ReasonInvalidAmount Reason = "INVALID_AMOUNT"

	// ReasonInsufficientFunds: the sender cannot cover the value it sends.
	ReasonInsufficientFunds Reason = "INSUFFICIENT_FUNDS"

	// ReasonOverflow: an amount left the 256-bit range.
	ReasonOverflow Reason = "OVERFLOW"

	// ReasonReentrantCall: a contribution was attempted while another one was
	// still executing its external calls.
	ReasonReentrantCall Reason = "REENTRANT_CALL"

	// ReasonStorage: the persistent store failed to commit.
	ReasonStorage Reason = "STORAGE"
)

// Error is the rejection returned by every sale operation.
//
// Error values compare by Reason under errors.Is, so callers match against
// the sentinels below regardless of the identity and amount attached.
type Error struct {
	Reason  Reason
	Message string

	// Identity is the sender or caller the rejection concerns, if any.
	Identity common.Address

	// Amount is the value involved, if any.
	Amount *big.Int

	// Err is the underlying cause for storage and host failures.
	Err error
}

// Sentinels for errors.Is.
var (
	ErrUnauthorized                 = &Error{Reason: ReasonUnauthorized, Message: "caller is not the sale admin"}
	ErrNotOpen                      = &Error{Reason: ReasonNotOpen, Message: "sale is not open"}
	ErrNotWhitelisted               = &Error{Reason: ReasonNotWhitelisted, Message: "sender is not whitelisted"}
	ErrCapExceeded                  = &Error{Reason: ReasonCapExceeded, Message: "contribution exceeds cap"}
	ErrInsufficientSaleTokenBalance = &Error{Reason: ReasonInsufficientSaleTokenBalance, Message: "sale token balance too low"}
	ErrInvalidAmount                = &Error{Reason: ReasonInvalidAmount, Message: "contribution must be positive"}
	ErrInsufficientFunds            = &Error{Reason: ReasonInsufficientFunds, Message: "sender balance too low"}
	ErrOverflow                     = &Error{Reason: ReasonOverflow, Message: "arithmetic overflow"}
	ErrReentrantCall                = &Error{Reason: ReasonReentrantCall, Message: "reentrant call"}
	ErrStorage                      = &Error{Reason: ReasonStorage, Message: "store commit failed"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Reason, e.Message)
	if e.Identity != (common.Address{}) {
		msg += fmt.Sprintf(" (identity=%s", e.Identity.Hex())
		if e.Amount != nil {
			msg += fmt.Sprintf(", amount=%s", e.Amount)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is an *Error with the same Reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// with returns a copy of the sentinel carrying identity and amount.
func (e *Error) with(identity common.Address, amount *big.Int) *Error {
	cp := *e
	cp.Identity = identity
	if amount != nil {
		cp.Amount = new(big.Int).Set(amount)
	}
	return &cp
}

// wrap returns a copy of the sentinel carrying an underlying cause.
func (e *Error) wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// ReasonOf extracts the Reason of a sale error. Uses errors.As to handle
// wrapped errors.
func ReasonOf(err error) (Reason, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Reason, true
	}
	return "", false
}

// IsFatal reports whether err signals an operational fault of the sale
// itself rather than a problem with the caller's request.
func IsFatal(err error) bool {
	r, ok := ReasonOf(err)
	return ok && (r == ReasonInsufficientSaleTokenBalance || r == ReasonStorage)
}
