package sale

import (
	"github.com/ethereum/go-ethereum/common"
)

// Whitelist is the set of identities allowed to contribute. Only the admin
// edits it, and edits are allowed in every phase of the sale.
type Whitelist struct {
	admin   common.Address
	members map[common.Address]bool
	count   int
}

// NewWhitelist creates an empty whitelist governed by admin.
func NewWhitelist(admin common.Address) *Whitelist {
	return &Whitelist{
		admin:   admin,
		members: make(map[common.Address]bool),
	}
}

// Set marks every identity in ids as eligible (flag=true) or ineligible.
//
// The batch is all-or-nothing: an unauthorized caller changes nothing.
// Duplicates are allowed and setting the current value is a no-op, so count
// only moves on actual transitions. Returns the identities whose membership
// changed, in first-seen order.
func (w *Whitelist) Set(caller common.Address, ids []common.Address, flag bool) ([]common.Address, error) {
	if caller != w.admin {
		return nil, ErrUnauthorized.with(caller, nil)
	}
	var changed []common.Address
	for _, id := range ids {
		if w.members[id] == flag {
			continue
		}
		w.apply(id, flag)
		changed = append(changed, id)
	}
	return changed, nil
}

// apply flips a single membership bit without any authorization check.
// The store loader and the engine undo journal use it directly.
func (w *Whitelist) apply(id common.Address, flag bool) {
	if flag {
		w.members[id] = true
		w.count++
		return
	}
	delete(w.members, id)
	w.count--
}

// IsWhitelisted reports whether id may contribute. Identities never seen
// default to false.
func (w *Whitelist) IsWhitelisted(id common.Address) bool {
	return w.members[id]
}

// Count returns the number of identities currently eligible.
func (w *Whitelist) Count() int {
	return w.count
}

// Admin returns the governing identity.
func (w *Whitelist) Admin() common.Address {
	return w.admin
}

// Members returns a snapshot of every eligible identity.
func (w *Whitelist) Members() []common.Address {
	out := make([]common.Address, 0, len(w.members))
	for id := range w.members {
		out = append(out, id)
	}
	return out
}
