// Package access holds the ledger's role state.
//
// The owner is fixed at creation and holds every privileged capability. The
// operator is assigned by the owner, stored and queryable, and is not granted
// any capability by this module.
package access

import (
	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/ledgererr"
)

// Control holds the owner and operator roles.
type Control struct {
	owner    domain.Address
	operator domain.Address
}

// New creates role state with owner set and no operator.
func New(owner domain.Address) *Control {
	return &Control{owner: owner}
}

// Restore recreates role state from persisted values.
func Restore(owner, operator domain.Address) *Control {
	return &Control{owner: owner, operator: operator}
}

// Owner returns the immutable owner address.
func (c *Control) Owner() domain.Address {
	return c.owner
}

// Operator returns the current operator, or the zero address if unset.
func (c *Control) Operator() domain.Address {
	return c.operator
}

// IsOwner reports whether addr is the owner.
func (c *Control) IsOwner(addr domain.Address) bool {
	return addr == c.owner
}

// RequireOwner returns ErrUnauthorized unless caller is the owner.
func (c *Control) RequireOwner(caller domain.Address) error {
	if caller != c.owner {
		return ledgererr.Reject(ledgererr.ErrUnauthorized, map[string]string{
			"caller": caller.Hex(),
		})
	}
	return nil
}

// SetOperator assigns the operator role. Owner-only.
// Assigning the zero address clears the role.
func (c *Control) SetOperator(caller, operator domain.Address) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	c.operator = operator
	return nil
}
